package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsmint/locks"
	"newsmint/logger"
	"newsmint/metagraph"
	"newsmint/storage"
	"newsmint/types"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Page size bounds
const (
	MaxListLimit    int64 = 100
	MaxListAllLimit int64 = 1000
)

// Store is the article persistence the service needs
type Store interface {
	FindByURL(ctx context.Context, url string) (*types.Article, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*types.Article, error)
	Insert(ctx context.Context, a *types.Article) (primitive.ObjectID, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, skip, limit int64) ([]*types.Article, error)
	ListByAddress(ctx context.Context, address string, skip, limit int64) ([]*types.Article, error)
	MarkMinted(ctx context.Context, id primitive.ObjectID, address, tokenID string, at time.Time) error
	Ping(ctx context.Context) error
}

// Crawler turns a URL into an article. A nil article means "not crawlable".
type Crawler interface {
	Crawl(ctx context.Context, url, address string) (*types.Article, error)
}

// Minter registers article data on the metagraph and returns the token id
type Minter interface {
	Mint(ctx context.Context, address string, data metagraph.MintData) (string, error)
}

// Archiver keeps an external copy of newly stored articles
type Archiver interface {
	Archive(ctx context.Context, a *types.Article) error
}

// Publisher announces article lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event types.ArticleEvent) error
}

// Deps are the optional collaborators of a Service
type Deps struct {
	Locker    locks.Locker
	Archiver  Archiver
	Publisher Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

// SubmitResult reports the article id for a submitted URL
type SubmitResult struct {
	ID string
	// Created is false when the URL was already stored
	Created bool
}

// Service implements submission, listing and minting of news articles
type Service struct {
	store     Store
	crawler   Crawler
	minter    Minter
	locker    locks.Locker
	archiver  Archiver
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewService wires a Service. Missing optional deps fall back to no-ops.
func NewService(store Store, crawler Crawler, minter Minter, deps Deps) *Service {
	s := &Service{
		store:     store,
		crawler:   crawler,
		minter:    minter,
		locker:    deps.Locker,
		archiver:  deps.Archiver,
		publisher: deps.Publisher,
		log:       logger.OrNop(deps.Logger),
		now:       deps.Now,
	}
	if s.locker == nil {
		s.locker = locks.NoopLocker{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SubmitIfAbsent stores the article at rawURL unless that exact URL is already stored
func (s *Service) SubmitIfAbsent(ctx context.Context, rawURL, address string) (*SubmitResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrMissingAddress
	}

	existing, err := s.store.FindByURL(ctx, rawURL)
	if err == nil {
		s.log.Info("article already exists", zap.String("url", rawURL), zap.String("id", existing.ID.Hex()))
		return &SubmitResult{ID: existing.ID.Hex()}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	article, err := s.crawler.Crawl(ctx, rawURL, address)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Interrupted, not uncrawlable: callers may retry
			s.log.Warn("crawl interrupted", zap.String("url", rawURL), zap.Error(err))
			return nil, fmt.Errorf("crawl of %s interrupted: %w", rawURL, err)
		}
		s.log.Warn("crawl failed", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCrawlFailure, err)
	}
	if article == nil {
		return nil, ErrCrawlFailure
	}

	article.ID = primitive.NilObjectID
	article.URL = rawURL
	article.DagAddress = address
	if article.Source == "" {
		article.Source = types.ExtractSource(rawURL)
	}
	article.MintedAt, article.MintedBy, article.NFTTokenID = nil, nil, nil

	id, err := s.store.Insert(ctx, article)
	if errors.Is(err, storage.ErrDuplicateURL) {
		// Lost the race against a concurrent submission of the same URL
		if winner, ferr := s.store.FindByURL(ctx, rawURL); ferr == nil {
			s.log.Info("article stored concurrently", zap.String("url", rawURL), zap.String("id", winner.ID.Hex()))
			return &SubmitResult{ID: winner.ID.Hex()}, nil
		}
	}
	if err != nil {
		s.log.Error("failed to store news article", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	article.ID = id
	s.log.Info("stored news article", zap.String("id", id.Hex()), zap.String("url", rawURL))

	s.archive(ctx, article)
	s.publish(ctx, types.ArticleEvent{
		Type:       types.EventArticleSubmitted,
		ArticleID:  id.Hex(),
		URL:        rawURL,
		DagAddress: address,
		OccurredAt: s.now().UTC(),
	})

	return &SubmitResult{ID: id.Hex(), Created: true}, nil
}

// List returns one page of articles with total and page metadata
func (s *Service) List(ctx context.Context, skip, limit int64) (*types.ArticlePage, error) {
	if err := checkPage(skip, limit, MaxListLimit); err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	articles, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	page := types.NewPage(articles, total, skip, limit)
	return &page, nil
}

// ListAll returns one page of articles with a larger limit. An empty page is ErrNotFound.
func (s *Service) ListAll(ctx context.Context, skip, limit int64) ([]*types.Article, error) {
	if err := checkPage(skip, limit, MaxListAllLimit); err != nil {
		return nil, err
	}

	articles, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no articles found", ErrNotFound)
	}
	return articles, nil
}

// ListByAddress returns one page of articles submitted by address.
// An empty page is ErrNotFound even when other pages have records.
func (s *Service) ListByAddress(ctx context.Context, address string, skip, limit int64) ([]*types.Article, error) {
	if err := checkPage(skip, limit, MaxListLimit); err != nil {
		return nil, err
	}

	articles, err := s.store.ListByAddress(ctx, address, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no articles found for this constellation", ErrNotFound)
	}
	return articles, nil
}

// Get returns the article with the given hex id
func (s *Service) Get(ctx context.Context, id string) (*types.Article, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, oid)
}

func (s *Service) get(ctx context.Context, oid primitive.ObjectID) (*types.Article, error) {
	article, err := s.store.FindByID(ctx, oid)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return article, nil
}

// Mint registers the article on the metagraph for address and records the token id.
// It returns the token id.
func (s *Service) Mint(ctx context.Context, id, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrMissingAddress
	}
	oid, err := parseID(id)
	if err != nil {
		return "", err
	}

	s.log.Info("received minting request", zap.String("article_id", oid.Hex()), zap.String("address", address))

	release, acquired, err := s.locker.Acquire(ctx, "mint:"+oid.Hex())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if !acquired {
		return "", ErrMintInProgress
	}
	defer release()

	article, err := s.get(ctx, oid)
	if err != nil {
		return "", err
	}
	if article.IsMinted() {
		s.log.Warn("article already minted", zap.String("article_id", oid.Hex()), zap.String("minted_by", *article.MintedBy))
		return "", ErrAlreadyMinted
	}

	tokenID, err := s.minter.Mint(ctx, address, mintData(article))
	if err != nil {
		s.log.Error("metagraph minting failed", zap.String("article_id", oid.Hex()), zap.Error(err))
		if errors.Is(err, metagraph.ErrProtocol) {
			return "", fmt.Errorf("%w: %v", ErrMintProtocol, err)
		}
		return "", fmt.Errorf("%w: %v", ErrMintTransport, err)
	}

	// The token exists on the metagraph now; record it even if the caller went away
	recordCtx := context.WithoutCancel(ctx)
	mintedAt := s.now().UTC()
	if err := s.store.MarkMinted(recordCtx, oid, address, tokenID, mintedAt); err != nil {
		s.log.Error("article minted on metagraph but not recorded",
			zap.String("article_id", oid.Hex()),
			zap.String("address", address),
			zap.String("nft_token_id", tokenID),
			zap.Error(err))
		return "", fmt.Errorf("%w: failed to update article: %v", ErrPersistenceFailure, err)
	}

	s.log.Info("NFT minted", zap.String("article_id", oid.Hex()), zap.String("nft_token_id", tokenID))
	s.publish(recordCtx, types.ArticleEvent{
		Type:       types.EventArticleMinted,
		ArticleID:  oid.Hex(),
		URL:        article.URL,
		DagAddress: address,
		NFTTokenID: tokenID,
		OccurredAt: mintedAt,
	})
	return tokenID, nil
}

// Ping reports whether the article store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) archive(ctx context.Context, a *types.Article) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, a); err != nil {
		s.log.Warn("article archive failed", zap.String("id", a.ID.Hex()), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event types.ArticleEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("article event publish failed",
			zap.String("type", event.Type),
			zap.String("article_id", event.ArticleID),
			zap.Error(err))
	}
}

func mintData(a *types.Article) metagraph.MintData {
	return metagraph.MintData{
		Title:         a.Title,
		Content:       a.Content,
		Authors:       a.Authors,
		PublishedDate: a.PublishedDate.UTC().Format(time.RFC3339),
		URL:           a.URL,
		Source:        a.Source,
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return oid, nil
}

func checkPage(skip, limit, maxLimit int64) error {
	if skip < 0 {
		return fmt.Errorf("%w: skip must be greater than or equal to 0", ErrInvalidPagination)
	}
	if limit < 1 || limit > maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPagination, maxLimit)
	}
	return nil
}
