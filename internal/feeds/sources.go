package feeds

import "strings"

// NewsSource is a named RSS/Atom feed polled for trending coverage.
type NewsSource struct {
	Name string
	URL  string
}

// DefaultNewsSources are the feeds polled when no override is configured.
var DefaultNewsSources = []NewsSource{
	{Name: "TechCrunch", URL: "https://techcrunch.com/feed/"},
	{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml"},
	{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index"},
	{Name: "Wired", URL: "https://www.wired.com/feed/rss"},
	{Name: "VentureBeat", URL: "https://venturebeat.com/feed/"},
}

// defaultSubreddits are always polled for community posts; topic-derived
// names are appended up to maxCommunitySources.
var defaultSubreddits = []string{"technology", "programming", "startups"}

// maxCommunitySources bounds how many community listings one request fans
// out to.
const maxCommunitySources = 5

// communitySources builds the bounded subreddit list for a request: the
// fixed set plus any topic-derived names, capped at maxCommunitySources.
func communitySources(topics []string) []string {
	subs := make([]string, 0, maxCommunitySources)
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
		if name == "" || len(subs) >= maxCommunitySources {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		subs = append(subs, name)
	}
	for _, s := range defaultSubreddits {
		add(s)
	}
	for _, t := range topics {
		add(t)
	}
	return subs
}
