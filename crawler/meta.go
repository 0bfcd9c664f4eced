package crawler

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// pageMeta holds metadata extracted from the HTML head and media tags
type pageMeta struct {
	Title       string
	Description string
	Image       string
	Authors     []string
	Published   time.Time
	Videos      []string
	Keywords    []string
}

var publishedSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="article:published_time"]`,
	`meta[property="og:published_time"]`,
	`meta[name="pubdate"]`,
	`meta[name="publishdate"]`,
	`meta[name="date"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="dc.date"]`,
	`meta[name="DC.date.issued"]`,
}

var videoEmbedHosts = []string{
	"youtube.com/embed/",
	"youtube-nocookie.com/embed/",
	"player.vimeo.com/video/",
	"dailymotion.com/embed/",
}

// parseMeta extracts page metadata from a parsed document
func parseMeta(doc *goquery.Document, pageURL *url.URL) pageMeta {
	content := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm := pageMeta{}

	pm.Title = firstNonEmpty(
		content(`meta[property="og:title"]`),
		content(`meta[name="twitter:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	pm.Description = firstNonEmpty(
		content(`meta[property="og:description"]`),
		content(`meta[name="description"]`),
		content(`meta[name="twitter:description"]`),
	)
	pm.Image = resolveURL(firstNonEmpty(
		content(`meta[property="og:image"]`),
		content(`meta[name="twitter:image"]`),
	), pageURL)

	doc.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		val, _ := s.Attr("content")
		// article:author is often a profile URL rather than a name
		if val = strings.TrimSpace(val); val != "" && !strings.HasPrefix(val, "http") {
			pm.Authors = appendUnique(pm.Authors, val)
		}
	})
	doc.Find(`[rel="author"], [itemprop="author"] [itemprop="name"]`).Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" && len(name) < 100 {
			pm.Authors = appendUnique(pm.Authors, name)
		}
	})

	for _, sel := range publishedSelectors {
		raw := content(sel)
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			pm.Published = t.UTC()
			break
		}
	}
	if pm.Published.IsZero() {
		if raw, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			if t, err := dateparse.ParseAny(strings.TrimSpace(raw)); err == nil {
				pm.Published = t.UTC()
			}
		}
	}

	pm.Videos = parseVideos(doc, pageURL)

	for _, sel := range []string{`meta[name="keywords"]`, `meta[name="news_keywords"]`} {
		for _, kw := range strings.Split(content(sel), ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				pm.Keywords = appendUnique(pm.Keywords, kw)
			}
		}
	}
	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if val, _ := s.Attr("content"); strings.TrimSpace(val) != "" {
			pm.Keywords = appendUnique(pm.Keywords, strings.TrimSpace(val))
		}
	})

	return pm
}

func parseVideos(doc *goquery.Document, pageURL *url.URL) []string {
	var videos []string
	add := func(raw string) {
		if resolved := resolveURL(strings.TrimSpace(raw), pageURL); resolved != "" {
			videos = appendUnique(videos, resolved)
		}
	}

	doc.Find(`meta[property="og:video"], meta[property="og:video:url"], meta[property="og:video:secure_url"]`).
		Each(func(_ int, s *goquery.Selection) {
			val, _ := s.Attr("content")
			add(val)
		})
	doc.Find("video[src], video source[src]").Each(func(_ int, s *goquery.Selection) {
		val, _ := s.Attr("src")
		add(val)
	})
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		for _, host := range videoEmbedHosts {
			if strings.Contains(src, host) {
				add(src)
				return
			}
		}
	})

	return videos
}

// firstNonEmpty returns the first non-empty string from the given values
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against the page URL
func resolveURL(raw string, base *url.URL) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() || base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, value) {
			return list
		}
	}
	return append(list, value)
}
