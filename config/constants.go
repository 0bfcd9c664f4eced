package config

import "time"

// Server Constants
const (
	// DefaultPort is the HTTP port the API listens on
	DefaultPort = "8000"

	// DefaultRoutePrefix is where the news routes are mounted (the web client calls /news/...)
	DefaultRoutePrefix = "/news"

	// DefaultLogLevel is the zap level used when LOG_LEVEL is unset
	DefaultLogLevel = "info"
)

// Database Constants
const (
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "newsmint"
	DefaultMongoCollection = "news_articles"

	// MongoConnectTimeout bounds the initial connect + ping at startup
	MongoConnectTimeout = 10 * time.Second
)

// Metagraph Constants
const (
	// DefaultMetagraphURL is the base URL of the local metagraph L1 node
	DefaultMetagraphURL = "http://localhost:9400"

	DefaultMetagraphTimeout = 30 * time.Second
)

// Crawler Constants
const (
	DefaultCrawlerTimeout   = 30 * time.Second
	DefaultCrawlerUserAgent = "Mozilla/5.0 (compatible; newsmint/1.0; +https://github.com/newsmint)"
)

// Mint Lock Constants
const (
	// DefaultMintLockTTL caps how long a crashed mint can hold an article's lock
	DefaultMintLockTTL = 2 * time.Minute
)

// Kafka Constants
const (
	DefaultEventsTopic      = "news-events"
	DefaultSubmissionsTopic = "news-submissions"
	DefaultKafkaGroupID     = "newsmint-submissions"
)

// Feed Import Constants
const (
	DefaultFeedImportCount = 10
)
