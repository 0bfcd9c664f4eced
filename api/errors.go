package api

import (
	"errors"
	"net/http"

	"newsmint/feeds"
	"newsmint/news"

	"github.com/gin-gonic/gin"
)

// statusFor maps service failures onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, news.ErrInvalidPagination):
		return http.StatusUnprocessableEntity
	case errors.Is(err, news.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, news.ErrInvalidIdentifier),
		errors.Is(err, news.ErrMissingAddress),
		errors.Is(err, news.ErrCrawlFailure),
		errors.Is(err, news.ErrAlreadyMinted),
		errors.Is(err, feeds.ErrInvalidFeed):
		return http.StatusBadRequest
	case errors.Is(err, news.ErrMintInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// detailFor returns the client-facing message for err
func detailFor(err error) string {
	switch {
	case errors.Is(err, news.ErrNotFound):
		return "Article not found"
	case errors.Is(err, news.ErrInvalidIdentifier):
		return "Invalid article id"
	case errors.Is(err, news.ErrMissingAddress):
		return "dag_address is required"
	case errors.Is(err, news.ErrCrawlFailure):
		return "News is not crawlable"
	case errors.Is(err, news.ErrAlreadyMinted):
		return "Article already minted"
	case errors.Is(err, news.ErrMintInProgress):
		return "Article is already being minted"
	case errors.Is(err, news.ErrMintProtocol):
		return "Failed to mint NFT on metagraph"
	case errors.Is(err, news.ErrMintTransport):
		return "Failed to interact with metagraph"
	default:
		return err.Error()
	}
}

// abortWithError records err on the context and writes {"detail": ...}
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"detail": detailFor(err)})
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
