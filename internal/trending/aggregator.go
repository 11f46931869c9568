// Package trending implements the topic-scoped aggregation pipeline: cache
// lookup, freshness decisions, fresh fetches, and write-back.
package trending

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/authrax/trending/internal/database"
	"github.com/authrax/trending/internal/model"
)

const (
	// PageSize is the fixed response page size.
	PageSize = 10

	// cacheSufficiencyMin is the bounded minimum-viable result size: if
	// either bucket already holds this many fresh cached items across
	// the requested topics, the request is served from cache alone.
	cacheSufficiencyMin = 5

	// maxCachedPerType bounds how many fresh items are written back per
	// item type per topic.
	maxCachedPerType = 15
)

// Source produces fresh trending content. Per-source failures are absorbed
// inside the implementation; the slices just come back smaller.
type Source interface {
	FetchNews(ctx context.Context) []model.TrendingItem
	FetchPosts(ctx context.Context, topics []string, tf model.Timeframe) []model.TrendingItem
}

// Aggregator answers trending requests from cache when it can and from
// fresh fetches when it must.
type Aggregator struct {
	store  database.Store
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// New creates an aggregator over the given store and source.
func New(store database.Store, source Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, source: source, logger: logger, now: time.Now}
}

// WithClock overrides the aggregator's clock. Tests only.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Aggregate serves one trending request.
func (a *Aggregator) Aggregate(ctx context.Context, req model.TrendingRequest) (*model.TrendingResponse, error) {
	topics := model.NormalizeTopics(req.Topics)
	tf := model.ParseTimeframe(req.Timeframe)
	contentType := model.ParseContentType(req.Type)
	page := req.Page
	if page < 1 {
		page = 1
	}
	now := a.now()

	news, posts, err := a.fromCache(topics, tf, now)
	if err != nil {
		return nil, err
	}
	cached := len(news) >= cacheSufficiencyMin || len(posts) >= cacheSufficiencyMin

	if !cached {
		news, posts = nil, nil
		if contentType.WantsNews() {
			fresh := a.source.FetchNews(ctx)
			news = filterNews(fresh, topics, tf.RecencyCutoff(now))
			sortNewsByDate(news)
		}
		if contentType.WantsPosts() {
			// Community listings arrive timeframe-filtered and
			// score-sorted already.
			posts = a.source.FetchPosts(ctx, topics, tf)
		}
		a.writeBack(topics, tf, now, news, posts)
	}

	resp := &model.TrendingResponse{
		TotalNews:  len(news),
		TotalPosts: len(posts),
		Cached:     cached,
	}
	resp.News, resp.HasMoreNews = paginate(news, page)
	resp.Posts, resp.HasMorePosts = paginate(posts, page)
	return resp, nil
}

// fromCache accumulates fresh cached entries across all requested topics
// into news and post buckets, deduplicating by source id.
func (a *Aggregator) fromCache(topics []string, tf model.Timeframe, now time.Time) (news, posts []model.TrendingItem, err error) {
	if len(topics) == 0 {
		return nil, nil, nil
	}
	minFetchedAt := now.Add(-tf.FreshnessWindow())
	seen := make(map[string]struct{})
	for _, topic := range topics {
		entries, err := a.store.LookupTrending(topic, tf, minFetchedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("cache lookup for %q: %w", topic, err)
		}
		for _, e := range entries {
			if _, ok := seen[e.SourceID]; ok {
				continue
			}
			seen[e.SourceID] = struct{}{}
			switch e.ItemType {
			case model.ItemTypeNews:
				news = append(news, e.TrendingItem)
			case model.ItemTypePost:
				posts = append(posts, e.TrendingItem)
			}
		}
	}
	// Accumulation across topics loses per-lookup order; restore it so
	// pagination stays stable.
	sortNewsByDate(news)
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Score > posts[j].Score })
	return news, posts, nil
}

// writeBack caches a bounded slice of fresh results under every requested
// topic. Caching is an optimization: failures are logged, never surfaced.
func (a *Aggregator) writeBack(topics []string, tf model.Timeframe, now time.Time, news, posts []model.TrendingItem) {
	if len(topics) == 0 {
		return
	}
	var entries []model.CacheEntry
	for _, topic := range topics {
		for _, it := range capSlice(news, maxCachedPerType) {
			entries = append(entries, model.CacheEntry{Topic: topic, Timeframe: tf, FetchedAt: now, TrendingItem: it})
		}
		for _, it := range capSlice(posts, maxCachedPerType) {
			entries = append(entries, model.CacheEntry{Topic: topic, Timeframe: tf, FetchedAt: now, TrendingItem: it})
		}
	}
	if len(entries) == 0 {
		return
	}
	written, err := a.store.WriteTrending(entries)
	if err != nil {
		a.logger.Warn("trending cache write failed", "err", err)
		return
	}
	a.logger.Debug("cached trending items", "written", written, "candidates", len(entries))
}

// filterNews keeps items mentioning any requested topic (all items when no
// topics were supplied) and published at or after the cutoff. Items
// without a parseable date pass the date filter.
func filterNews(items []model.TrendingItem, topics []string, cutoff time.Time) []model.TrendingItem {
	var out []model.TrendingItem
	for _, it := range items {
		if len(topics) > 0 && !matchesAnyTopic(it, topics) {
			continue
		}
		if it.PublishedAt != nil && it.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesAnyTopic(it model.TrendingItem, topics []string) bool {
	title := strings.ToLower(it.Title)
	desc := strings.ToLower(it.Description)
	for _, topic := range topics {
		if strings.Contains(title, topic) || strings.Contains(desc, topic) {
			return true
		}
	}
	return false
}

// sortNewsByDate orders by publish date descending, undated items last.
func sortNewsByDate(items []model.TrendingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].PublishedAt, items[j].PublishedAt
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return pi.After(*pj)
	})
}

// paginate applies the fixed page size. hasMore is true iff the total
// count exceeds the returned slice's upper bound.
func paginate(items []model.TrendingItem, page int) ([]model.TrendingItem, bool) {
	start := (page - 1) * PageSize
	if start >= len(items) {
		return []model.TrendingItem{}, false
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page*PageSize < len(items)
}

func capSlice(items []model.TrendingItem, n int) []model.TrendingItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
