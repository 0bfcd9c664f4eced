package crawler

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsmint/logger"
	"newsmint/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const (
	maxHTMLBodyBytes = 5 << 20 // 5 MiB
	maxRedirects     = 10
)

// Config controls how pages are fetched
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Crawler fetches a news page and extracts it into an article record
type Crawler struct {
	client *resty.Client
	log    *zap.Logger
	now    func() time.Time
}

// New creates a crawler with its own resty client
func New(cfg Config, log *zap.Logger) *Crawler {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Crawler{
		client: client,
		log:    logger.OrNop(log),
		now:    time.Now,
	}
}

// Crawl fetches rawURL and extracts an article attributed to address.
// A nil article with a nil error means the page is not crawlable; an error is
// only returned when ctx is done.
func (c *Crawler) Crawl(ctx context.Context, rawURL, address string) (*types.Article, error) {
	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		c.log.Info("url is not crawlable", zap.String("url", rawURL))
		return nil, nil
	}

	resp, err := c.client.R().SetContext(ctx).Get(pageURL.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn("page fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, nil
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		c.log.Warn("page fetch returned non-2xx",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode()))
		return nil, nil
	}

	if ct := resp.Header().Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		c.log.Info("page is not html", zap.String("url", rawURL), zap.String("content_type", ct))
		return nil, nil
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		c.log.Info("html body truncated",
			zap.String("url", rawURL),
			zap.Int("original", len(body)),
			zap.Int("kept", maxHTMLBodyBytes))
		body = body[:maxHTMLBodyBytes]
	}

	// Relative links resolve against the final location after redirects
	base := pageURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		base = resp.RawResponse.Request.URL
	}

	article := c.extract(body, base, address)
	if article == nil {
		c.log.Info("no article content extracted", zap.String("url", rawURL))
		return nil, nil
	}
	article.URL = rawURL
	article.Source = pageURL.Host

	c.log.Info("crawled article",
		zap.String("url", rawURL),
		zap.String("title", article.Title),
		zap.Int("content_length", len(article.Content)))
	return article, nil
}

// extract parses page HTML into an article, or returns nil when there is no
// title or readable body text.
func (c *Crawler) extract(body []byte, pageURL *url.URL, address string) *types.Article {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.log.Debug("html parse failed", zap.Error(err))
		return nil
	}
	meta := parseMeta(doc, pageURL)

	readable, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		c.log.Debug("readability extraction failed", zap.String("url", pageURL.String()), zap.Error(err))
		return nil
	}

	title := firstNonEmpty(meta.Title, readable.Title)
	content := normalizeText(readable.TextContent)
	if title == "" || content == "" {
		return nil
	}

	published := meta.Published
	if published.IsZero() {
		published = c.now().UTC()
	}

	authors := meta.Authors
	if byline := strings.TrimSpace(readable.Byline); byline != "" {
		authors = appendUnique(authors, byline)
	}

	topImage := meta.Image
	if topImage == "" {
		topImage = resolveURL(readable.Image, pageURL)
	}

	return &types.Article{
		Title:         title,
		Content:       content,
		Authors:       strings.Join(authors, ", "),
		PublishedDate: published,
		TopImage:      types.StringPtr(topImage),
		Videos:        meta.Videos,
		Keywords:      meta.Keywords,
		Summary:       types.StringPtr(firstNonEmpty(meta.Description, readable.Excerpt)),
		DagAddress:    address,
	}
}

// normalizeText trims each line and collapses runs of blank lines
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
