package feeds

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSkipList(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	s := NewRedisSkipList(client, "newsmint:test:skip:", time.Hour)
	link := "https://example.com/paywall?utm_source=rss"

	ok, err := s.Contains(ctx, link)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Add(ctx, link))

	ok, err = s.Contains(ctx, "https://EXAMPLE.com/paywall/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL(s.key(link)))

	mr.FastForward(time.Hour + time.Second)
	ok, err = s.Contains(ctx, link)
	require.NoError(t, err)
	assert.False(t, ok, "entries expire after the TTL")
}

func TestRedisSkipListDefaults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisSkipList(client, "", 0)
	require.NoError(t, s.Add(context.Background(), "https://example.com/a"))

	assert.Equal(t, DefaultSkipTTL, mr.TTL(s.key("https://example.com/a")))
	assert.True(t, mr.Exists("newsmint:skip:"+linkHash("https://example.com/a")))
}

func TestImporterRemembersThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	srv := feedServer(t)
	sub := newFakeSubmitter()
	imp := NewImporter(sub, nil).WithSkipList(NewRedisSkipList(client, "", 0))

	_, err := imp.Import(context.Background(), srv.URL+"/rss.xml", "DAG0a", 10)
	require.NoError(t, err)
	report, err := imp.Import(context.Background(), srv.URL+"/rss.xml", "DAG0a", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, mr.Keys(), 1)
}
