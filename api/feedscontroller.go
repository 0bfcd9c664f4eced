package api

import (
	"net/http"

	"newsmint/feeds"

	"github.com/gin-gonic/gin"
)

// FeedImportRequest asks for the newest entries of a feed to be submitted
type FeedImportRequest struct {
	FeedURL    string `json:"feed_url"`
	FeedPreset string `json:"feed_preset"`
	DagAddress string `json:"dag_address" binding:"required"`
	Count      int    `json:"count" binding:"omitempty,min=1,max=100"`
}

// RegisterFeedRoutes registers feed import endpoints.
func RegisterFeedRoutes(r *gin.Engine, importer FeedImporter) {
	g := r.Group("/feeds")
	g.GET("/presets", handleListPresets)
	g.POST("/import", func(c *gin.Context) { handleFeedImport(c, importer) })
}

func handleListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"default": feeds.DefaultPreset, "presets": feeds.Presets})
}

// handleFeedImport fetches the feed and submits its entries synchronously,
// returning the outcome for every entry.
func handleFeedImport(c *gin.Context, importer FeedImporter) {
	var req FeedImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	feed := req.FeedURL
	if feed == "" {
		feed = req.FeedPreset
	}
	count := req.Count
	if count == 0 {
		count = 10
	}

	report, err := importer.Import(c.Request.Context(), feed, req.DagAddress, count)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
