package feeds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"newsmint/logger"
	"newsmint/news"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// WorkerCount is the number of concurrent submissions per import
const WorkerCount = 5

var ErrInvalidFeed = errors.New("invalid feed")

// Submitter stores a URL as an article if it is not stored yet
type Submitter interface {
	SubmitIfAbsent(ctx context.Context, url, address string) (*news.SubmitResult, error)
}

// ItemResult is the outcome of submitting one feed entry
type ItemResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	ID      string `json:"id,omitempty"`
	Created bool   `json:"created"`
	// Skipped entries were found uncrawlable by an earlier import
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report summarises one feed import
type Report struct {
	FeedURL   string        `json:"feed_url"`
	FeedTitle string        `json:"feed_title"`
	Created   int           `json:"created"`
	Existing  int           `json:"existing"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Items     []*ItemResult `json:"items"`
}

// Importer submits the newest entries of RSS/Atom feeds as articles
type Importer struct {
	parser    *gofeed.Parser
	submitter Submitter
	skip      SkipList
	workers   int
	timeout   time.Duration
	log       *zap.Logger
}

// NewImporter creates an Importer that submits through submitter
func NewImporter(submitter Submitter, log *zap.Logger) *Importer {
	return &Importer{
		parser:    gofeed.NewParser(),
		submitter: submitter,
		workers:   WorkerCount,
		timeout:   30 * time.Second,
		log:       logger.OrNop(log),
	}
}

// WithSkipList makes the importer skip links that earlier imports could not crawl
func (i *Importer) WithSkipList(skip SkipList) *Importer {
	i.skip = skip
	return i
}

// Import fetches feed (a preset name or URL) and submits up to count entry links on behalf of address
func (i *Importer) Import(ctx context.Context, feed, address string, count int) (*Report, error) {
	feedURL := ResolveURL(feed)
	if feedURL == "" {
		feedURL = Presets[DefaultPreset]
	}
	if strings.TrimSpace(address) == "" {
		return nil, news.ErrMissingAddress
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidFeed)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	parsed, err := i.parser.ParseURLWithContext(feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch feed %s: %v", ErrInvalidFeed, feedURL, err)
	}

	items := entries(parsed, count)
	i.log.Info("importing feed",
		zap.String("feed_url", feedURL),
		zap.Int("entries", len(items)),
		zap.String("address", address))

	i.submitAll(ctx, items, address)

	report := &Report{FeedURL: feedURL, FeedTitle: parsed.Title, Items: items}
	for _, item := range items {
		switch {
		case item.Skipped:
			report.Skipped++
		case item.Error != "":
			report.Failed++
		case item.Created:
			report.Created++
		default:
			report.Existing++
		}
	}
	i.log.Info("feed import finished",
		zap.String("feed_url", feedURL),
		zap.Int("created", report.Created),
		zap.Int("existing", report.Existing),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// entries keeps the first count items that carry a link, skipping links that
// differ only by tracking parameters or fragment
func entries(feed *gofeed.Feed, count int) []*ItemResult {
	seen := make(map[string]bool)
	out := make([]*ItemResult, 0, min(len(feed.Items), count))
	for _, item := range feed.Items {
		if len(out) == count {
			break
		}
		link := strings.TrimSpace(item.Link)
		key := normalizeLink(link)
		if link == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, &ItemResult{URL: link, Title: strings.TrimSpace(item.Title)})
	}
	return out
}

func (i *Importer) submitAll(ctx context.Context, items []*ItemResult, address string) {
	var wg sync.WaitGroup
	queue := make(chan *ItemResult)

	for w := 0; w < i.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for item := range queue {
				if i.skipped(ctx, item.URL) {
					item.Skipped = true
					continue
				}
				res, err := i.submitter.SubmitIfAbsent(ctx, item.URL, address)
				if err != nil {
					item.Error = err.Error()
					if errors.Is(err, news.ErrCrawlFailure) {
						i.remember(ctx, item.URL)
					}
					i.log.Warn("feed entry not stored",
						zap.Int("worker", workerID),
						zap.String("url", item.URL),
						zap.Error(err))
					continue
				}
				item.ID = res.ID
				item.Created = res.Created
			}
		}(w)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			item.Error = ctx.Err().Error()
			continue
		}
		queue <- item
	}
	close(queue)
	wg.Wait()
}

func (i *Importer) skipped(ctx context.Context, link string) bool {
	if i.skip == nil {
		return false
	}
	ok, err := i.skip.Contains(ctx, link)
	if err != nil {
		i.log.Warn("skip list lookup failed", zap.String("url", link), zap.Error(err))
		return false
	}
	return ok
}

func (i *Importer) remember(ctx context.Context, link string) {
	if i.skip == nil {
		return
	}
	if err := i.skip.Add(ctx, link); err != nil {
		i.log.Warn("skip list update failed", zap.String("url", link), zap.Error(err))
	}
}
