package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"newsmint/news"
	"newsmint/types"

	"github.com/gin-gonic/gin"
)

type pageQuery struct {
	Skip  int64 `form:"skip,default=0" binding:"min=0"`
	Limit int64 `form:"limit,default=10" binding:"min=1,max=100"`
}

type allQuery struct {
	Skip  int64 `form:"skip,default=0" binding:"min=0"`
	Limit int64 `form:"limit,default=100" binding:"min=1,max=1000"`
}

type mintBody struct {
	DagAddress string `json:"dag_address"`
}

type newsController struct {
	svc NewsService
}

// RegisterNewsRoutes mounts the article routes under prefix ("" mounts at the root).
// Static segments are registered alongside /:id and take precedence over it.
func RegisterNewsRoutes(r *gin.Engine, prefix string, svc NewsService) {
	nc := &newsController{svc: svc}

	g := r.Group(prefix)
	g.POST("/submit", nc.submit)
	if prefix != "" {
		g.GET("", nc.list)
	}
	g.GET("/", nc.list)
	g.GET("/all", nc.listAll)
	g.GET("/constellation/:address", nc.listByAddress)
	g.GET("/:id", nc.get)
	g.POST("/:id/mint", nc.mint)
}

// submit crawls and stores a URL unless it is stored already
// POST /submit {url, dag_address}
func (nc *newsController) submit(c *gin.Context) {
	var req types.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := nc.svc.SubmitIfAbsent(c.Request.Context(), req.URL, req.DagAddress)
	if err != nil {
		if errors.Is(err, news.ErrPersistenceFailure) {
			_ = c.Error(err)
			abortWithDetail(c, http.StatusInternalServerError, "Failed to store news article")
			return
		}
		abortWithError(c, err)
		return
	}

	message := "News article successfully crawled and stored"
	if !res.Created {
		message = "Article already exists"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "id": res.ID})
}

// list returns one page of articles with page metadata
// GET /?skip=&limit=
func (nc *newsController) list(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	page, err := nc.svc.List(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		nc.abortListError(c, err, "No articles found")
		return
	}
	c.JSON(http.StatusOK, page)
}

// listAll returns a bare array of articles
// GET /all?skip=&limit=
func (nc *newsController) listAll(c *gin.Context) {
	var q allQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	articles, err := nc.svc.ListAll(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		nc.abortListError(c, err, "No articles found")
		return
	}
	c.JSON(http.StatusOK, types.ToResponses(articles))
}

// listByAddress returns the articles submitted by one constellation address
// GET /constellation/:address?skip=&limit=
func (nc *newsController) listByAddress(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	articles, err := nc.svc.ListByAddress(c.Request.Context(), c.Param("address"), q.Skip, q.Limit)
	if err != nil {
		nc.abortListError(c, err, "No articles found for this constellation")
		return
	}
	c.JSON(http.StatusOK, types.ToResponses(articles))
}

func (nc *newsController) abortListError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, news.ErrNotFound):
		abortWithDetail(c, http.StatusNotFound, notFound)
	case errors.Is(err, news.ErrInvalidPagination):
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
	default:
		_ = c.Error(err)
		abortWithDetail(c, http.StatusInternalServerError, "Failed to retrieve news articles")
	}
}

// get returns one article by id
// GET /:id
func (nc *newsController) get(c *gin.Context) {
	article, err := nc.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, news.ErrPersistenceFailure) {
			_ = c.Error(err)
			abortWithDetail(c, http.StatusInternalServerError, "Failed to retrieve news article")
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ToResponse(article))
}

// mint registers an article on the metagraph for dag_address, taken from the
// query string or the JSON body
// POST /:id/mint
func (nc *newsController) mint(c *gin.Context) {
	address := strings.TrimSpace(c.Query("dag_address"))
	if address == "" && c.Request.ContentLength != 0 {
		var body mintBody
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		address = body.DagAddress
	}

	tokenID, err := nc.svc.Mint(c.Request.Context(), c.Param("id"), address)
	if err != nil {
		if errors.Is(err, news.ErrPersistenceFailure) {
			_ = c.Error(err)
			abortWithDetail(c, http.StatusInternalServerError, "Failed to update article")
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "NFT minted successfully", "nft_token_id": tokenID})
}
