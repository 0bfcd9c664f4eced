package cmd

import (
	"context"
	"fmt"
	"strings"

	"newsmint/config"
	"newsmint/crawler"
	"newsmint/events"
	"newsmint/feeds"
	"newsmint/locks"
	"newsmint/metagraph"
	"newsmint/news"
	"newsmint/storage"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// app holds the components shared by the commands
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	store     news.Store
	metagraph *metagraph.Client
	redis     *redis.Client
	svc       *news.Service

	closers []func()
}

// newApp connects to the configured backends. Optional backends that are
// configured but unreachable are fatal.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	deps := news.Deps{Logger: log}

	if cfg.RedisEnabled() {
		locker, err := locks.NewRedisLocker(locks.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.MintLockTTL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = locker.Close() })
		deps.Locker = locker
		a.redis = locker.Client()
		log.Info("mint lock enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	if cfg.S3Enabled() {
		archive, err := storage.NewS3Archive(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Archiver = archive
		log.Info("article archive enabled", zap.String("bucket", cfg.S3Bucket), zap.String("prefix", cfg.S3Prefix))
	}

	if cfg.KafkaEnabled() {
		producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = producer.Close() })
		deps.Publisher = producer
		log.Info("article events enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaEventsTopic))
	}

	a.metagraph = metagraph.NewClient(cfg.MetagraphURL, cfg.MetagraphTimeout, log)
	cr := crawler.New(crawler.Config{Timeout: cfg.CrawlerTimeout, UserAgent: cfg.CrawlerUserAgent}, log)
	a.svc = news.NewService(a.store, cr, a.metagraph, deps)
	return a, nil
}

// importer builds a feed importer over the service, skipping known
// uncrawlable links when Redis is available
func (a *app) importer() *feeds.Importer {
	imp := feeds.NewImporter(a.svc, a.log)
	if a.redis != nil {
		imp.WithSkipList(feeds.NewRedisSkipList(a.redis, "", feeds.DefaultSkipTTL))
	}
	return imp
}

func (a *app) openStore(ctx context.Context) error {
	if strings.EqualFold(a.cfg.MongoURI, "memory") {
		a.log.Warn("using in-memory article store; data is lost on exit")
		a.store = storage.NewMemoryStore()
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.MongoConnectTimeout)
	defer cancel()
	client, err := storage.Connect(connectCtx, a.cfg.MongoURI)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { disconnect(client) })

	store := storage.NewMongoStore(client, a.cfg.MongoDatabase, a.cfg.MongoCollection)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	a.store = store
	a.log.Info("connected to mongodb",
		zap.String("database", a.cfg.MongoDatabase),
		zap.String("collection", a.cfg.MongoCollection))
	return nil
}

// Close releases backends in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), config.MongoConnectTimeout)
	defer cancel()
	_ = client.Disconnect(ctx)
}
