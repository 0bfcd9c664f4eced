package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration. Every field can be set from the
// environment variable of the same name in upper case (e.g. MONGO_URI).
type Config struct {
	Port        string `mapstructure:"port"`
	GinMode     string `mapstructure:"gin_mode"`
	LogLevel    string `mapstructure:"log_level"`
	RoutePrefix string `mapstructure:"news_route_prefix"`

	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`

	MetagraphURL     string        `mapstructure:"metagraph_api_url"`
	MetagraphTimeout time.Duration `mapstructure:"metagraph_timeout"`

	CrawlerTimeout   time.Duration `mapstructure:"crawler_timeout"`
	CrawlerUserAgent string        `mapstructure:"crawler_user_agent"`

	// Redis is optional; an empty address disables the mint lock
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	MintLockTTL   time.Duration `mapstructure:"mint_lock_ttl"`

	// S3 is optional; an empty bucket disables article archiving
	S3Bucket       string `mapstructure:"s3_bucket"`
	S3Prefix       string `mapstructure:"s3_prefix"`
	S3Region       string `mapstructure:"s3_region"`
	S3Profile      string `mapstructure:"s3_profile"`
	S3UsePathStyle bool   `mapstructure:"s3_use_path_style"`

	// Kafka is optional; no brokers disables events and async submissions
	KafkaBrokers          []string `mapstructure:"kafka_brokers"`
	KafkaEventsTopic      string   `mapstructure:"kafka_events_topic"`
	KafkaSubmissionsTopic string   `mapstructure:"kafka_submissions_topic"`
	KafkaGroupID          string   `mapstructure:"kafka_group_id"`

	// Scheduled feed import; an empty schedule disables it
	FeedImportCron    string   `mapstructure:"feed_import_cron"`
	FeedImportPresets []string `mapstructure:"feed_import_presets"`
	FeedImportAddress string   `mapstructure:"feed_import_address"`
	FeedImportCount   int      `mapstructure:"feed_import_count"`
}

// Load reads configuration from defaults, an optional config.yaml (./ or ./config)
// and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("news_route_prefix", DefaultRoutePrefix)

	v.SetDefault("mongo_uri", DefaultMongoURI)
	v.SetDefault("mongo_database", DefaultMongoDatabase)
	v.SetDefault("mongo_collection", DefaultMongoCollection)

	v.SetDefault("metagraph_api_url", DefaultMetagraphURL)
	v.SetDefault("metagraph_timeout", DefaultMetagraphTimeout)

	v.SetDefault("crawler_timeout", DefaultCrawlerTimeout)
	v.SetDefault("crawler_user_agent", DefaultCrawlerUserAgent)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("mint_lock_ttl", DefaultMintLockTTL)

	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("s3_region", "")
	v.SetDefault("s3_profile", "")
	v.SetDefault("s3_use_path_style", false)

	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_events_topic", DefaultEventsTopic)
	v.SetDefault("kafka_submissions_topic", DefaultSubmissionsTopic)
	v.SetDefault("kafka_group_id", DefaultKafkaGroupID)

	v.SetDefault("feed_import_cron", "")
	v.SetDefault("feed_import_presets", []string{})
	v.SetDefault("feed_import_address", "")
	v.SetDefault("feed_import_count", DefaultFeedImportCount)
}

func (c *Config) normalize() {
	c.MetagraphURL = strings.TrimRight(strings.TrimSpace(c.MetagraphURL), "/")
	c.RoutePrefix = strings.TrimRight(strings.TrimSpace(c.RoutePrefix), "/")
	if c.RoutePrefix != "" && !strings.HasPrefix(c.RoutePrefix, "/") {
		c.RoutePrefix = "/" + c.RoutePrefix
	}
	if c.S3Prefix != "" {
		c.S3Prefix = strings.Trim(c.S3Prefix, "/") + "/"
	}

	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, b := range c.KafkaBrokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	c.KafkaBrokers = brokers

	if c.FeedImportCount <= 0 {
		c.FeedImportCount = DefaultFeedImportCount
	}
}

// Validate checks the settings that have no usable fallback
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode)
	}
	if c.MongoURI == "" {
		return errors.New("MONGO_URI must not be empty")
	}
	if c.MetagraphURL == "" {
		return errors.New("METAGRAPH_API_URL must not be empty")
	}
	if c.FeedImportCron != "" && c.FeedImportAddress == "" {
		return errors.New("FEED_IMPORT_ADDRESS is required when FEED_IMPORT_CRON is set")
	}
	return nil
}

// RedisEnabled reports whether a Redis address was configured
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// S3Enabled reports whether article archiving was configured
func (c *Config) S3Enabled() bool { return c.S3Bucket != "" }

// KafkaEnabled reports whether any Kafka broker was configured
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }
