package api

import (
	"context"

	"newsmint/feeds"
	"newsmint/logger"
	"newsmint/metagraph"
	"newsmint/news"
	"newsmint/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewsService is the article workflow behind the news routes
type NewsService interface {
	SubmitIfAbsent(ctx context.Context, url, address string) (*news.SubmitResult, error)
	List(ctx context.Context, skip, limit int64) (*types.ArticlePage, error)
	ListAll(ctx context.Context, skip, limit int64) ([]*types.Article, error)
	ListByAddress(ctx context.Context, address string, skip, limit int64) ([]*types.Article, error)
	Get(ctx context.Context, id string) (*types.Article, error)
	Mint(ctx context.Context, id, address string) (string, error)
	Ping(ctx context.Context) error
}

// NodeInfoClient reads metagraph node information
type NodeInfoClient interface {
	NodeInfo(ctx context.Context) (metagraph.NodeInfo, error)
}

// FeedImporter submits the entries of an RSS/Atom feed
type FeedImporter interface {
	Import(ctx context.Context, feed, address string, count int) (*feeds.Report, error)
}

// Deps are the collaborators of the HTTP API. Metagraph and Importer are optional.
type Deps struct {
	News        NewsService
	Metagraph   NodeInfoClient
	Importer    FeedImporter
	RoutePrefix string
	Logger      *zap.Logger
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Deps) *gin.Engine {
	log := logger.OrNop(deps.Logger)

	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery(), cors())

	RegisterNewsRoutes(r, deps.RoutePrefix, deps.News)
	RegisterHealthRoutes(r, deps.News, deps.Metagraph)
	if deps.Metagraph != nil {
		RegisterMetagraphRoutes(r, deps.Metagraph)
	}
	if deps.Importer != nil {
		RegisterFeedRoutes(r, deps.Importer)
	}
	return r
}
