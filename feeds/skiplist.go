package feeds

import (
	"context"
	"net/url"
	"strings"
	"time"

	"newsmint/types"

	"github.com/redis/go-redis/v9"
)

// DefaultSkipTTL is how long an uncrawlable link is skipped by later imports
const DefaultSkipTTL = 24 * time.Hour

// SkipList remembers feed links that could not be crawled so later imports skip them
type SkipList interface {
	Contains(ctx context.Context, link string) (bool, error)
	Add(ctx context.Context, link string) error
}

// RedisSkipList stores one expiring key per normalized link
type RedisSkipList struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSkipList creates a skip list on an existing Redis client
func NewRedisSkipList(client *redis.Client, prefix string, ttl time.Duration) *RedisSkipList {
	if prefix == "" {
		prefix = "newsmint:skip:"
	}
	if ttl <= 0 {
		ttl = DefaultSkipTTL
	}
	return &RedisSkipList{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSkipList) Contains(ctx context.Context, link string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(link)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Add records link; the entry expires after the configured TTL
func (s *RedisSkipList) Add(ctx context.Context, link string) error {
	return s.client.Set(ctx, s.key(link), 1, s.ttl).Err()
}

func (s *RedisSkipList) key(link string) string {
	return s.prefix + linkHash(link)
}

// linkHash is a stable hash of the normalized link
func linkHash(link string) string {
	return types.GenerateID(normalizeLink(link))
}

// normalizeLink lowercases scheme and host, drops the fragment, tracking
// parameters and trailing slashes. It only keys caches; stored articles keep
// the link exactly as published.
func normalizeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
