package feeds

import (
	"sort"
	"strings"
)

// DefaultPreset is used when neither a preset nor a URL is given
const DefaultPreset = "st"

// Presets maps friendly names to RSS feed URLs
var Presets = map[string]string{
	"cna": "https://www.channelnewsasia.com/api/v1/rss-outbound-feed?_format=xml",
	"st":  "https://www.straitstimes.com/news/singapore/rss.xml",
	"hn":  "https://hnrss.org/newest",
	"tr":  "https://www.technologyreview.com/feed/",
}

// ResolveURL returns the URL for a preset name, or the input itself when it is not a preset
func ResolveURL(feed string) string {
	feed = strings.TrimSpace(feed)
	if url, ok := Presets[strings.ToLower(feed)]; ok {
		return url
	}
	return feed
}

// PresetNames lists the preset names in alphabetical order
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
