// Package feeds retrieves and normalizes external trending content.
//
// All retrieval is best-effort: a failing source is logged and contributes
// nothing, it never aborts the other sources or the caller.
package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/authrax/trending/internal/model"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// userAgent identifies us to upstream hosts.
	userAgent = "authrax-trending/1.0 (+https://authrax.com)"

	// maxItemsPerFeed bounds parse cost per RSS source.
	maxItemsPerFeed = 15

	// maxCommunityPosts bounds the merged community result set.
	maxCommunityPosts = 25

	// maxDescriptionLen bounds normalized descriptions.
	maxDescriptionLen = 250

	// sourceTimeout bounds each individual source fetch so one slow host
	// cannot stall the whole aggregation.
	sourceTimeout = 10 * time.Second

	// fetchConcurrency limits parallel source fetches.
	fetchConcurrency = 4
)

// Fetcher retrieves news and community posts from external sources.
type Fetcher struct {
	news          []NewsSource
	parser        *gofeed.Parser
	client        *http.Client
	redditBaseURL string
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithNewsSources overrides the default news feed list.
func WithNewsSources(sources []NewsSource) Option {
	return func(f *Fetcher) { f.news = sources }
}

// WithRedditBaseURL overrides the community API base URL (useful for tests).
func WithRedditBaseURL(base string) Option {
	return func(f *Fetcher) { f.redditBaseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the internal HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
		f.parser.Client = client
	}
}

// NewFetcher creates a fetcher with the default source lists.
func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	client := &http.Client{Timeout: sourceTimeout}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = client
	f := &Fetcher{
		news:          DefaultNewsSources,
		parser:        parser,
		client:        client,
		redditBaseURL: "https://www.reddit.com",
		// Reddit asks unauthenticated clients to stay around 1 req/s.
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchNews retrieves and parses every configured news feed concurrently.
// Failing sources degrade the result set size, never the call.
func (f *Fetcher) FetchNews(ctx context.Context) []model.TrendingItem {
	var (
		mu    sync.Mutex
		items []model.TrendingItem
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, src := range f.news {
		src := src
		g.Go(func() error {
			parsed := f.fetchFeed(ctx, src)
			mu.Lock()
			items = append(items, parsed...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return items
}

// fetchFeed retrieves one RSS source. Errors are logged and yield nil.
func (f *Fetcher) fetchFeed(ctx context.Context, src NewsSource) []model.TrendingItem {
	ctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		f.logger.Warn("feed fetch failed", "source", src.Name, "url", src.URL, "err", err)
		return nil
	}

	sourceName := src.Name
	if sourceName == "" {
		sourceName = feed.Title
	}

	var items []model.TrendingItem
	for _, it := range feed.Items {
		if len(items) >= maxItemsPerFeed {
			break
		}
		link := it.Link
		if link == "" {
			link = it.GUID
		}
		// Items without a resolvable title and link are discarded.
		if link == "" || strings.TrimSpace(it.Title) == "" {
			continue
		}
		desc := it.Description
		if desc == "" {
			desc = it.Content
		}
		item := model.TrendingItem{
			ItemType:    model.ItemTypeNews,
			SourceID:    link,
			Title:       strings.TrimSpace(it.Title),
			Description: truncate(stripHTML(desc), maxDescriptionLen),
			SourceName:  sourceName,
		}
		if len(it.Categories) > 0 {
			item.Category = it.Categories[0]
		}
		if it.Author != nil {
			item.Author = it.Author.Name
		}
		if it.PublishedParsed != nil {
			t := *it.PublishedParsed
			item.PublishedAt = &t
		} else if it.UpdatedParsed != nil {
			t := *it.UpdatedParsed
			item.PublishedAt = &t
		}
		items = append(items, item)
	}
	return items
}

// FetchPosts retrieves top community posts for the timeframe across a
// bounded set of communities, merged and sorted by score descending.
func (f *Fetcher) FetchPosts(ctx context.Context, topics []string, tf model.Timeframe) []model.TrendingItem {
	var (
		mu    sync.Mutex
		items []model.TrendingItem
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, sub := range communitySources(topics) {
		sub := sub
		g.Go(func() error {
			posts, err := f.fetchSubreddit(ctx, sub, tf)
			if err != nil {
				f.logger.Warn("community fetch failed", "subreddit", sub, "err", err)
				return nil
			}
			mu.Lock()
			items = append(items, posts...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > maxCommunityPosts {
		items = items[:maxCommunityPosts]
	}
	return items
}

// stripHTML drops tags and collapses whitespace.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// truncate bounds s to n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
