package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/authrax/trending/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redditListingFixture = `{
	"data": {
		"children": [
			{"data": {"title": "Pinned announcement", "permalink": "/r/technology/comments/1/", "subreddit": "technology", "score": 9999, "stickied": true}},
			{"data": {"title": "NSFW thing", "permalink": "/r/technology/comments/2/", "subreddit": "technology", "score": 500, "over_18": true}},
			{"data": {"title": "Mid post", "selftext": "body text", "permalink": "/r/technology/comments/3/", "subreddit": "technology", "author": "alice", "score": 42, "num_comments": 7, "created_utc": 1770000000}},
			{"data": {"title": "Top post", "permalink": "/r/technology/comments/4/", "subreddit": "technology", "author": "bob", "score": 314, "num_comments": 88, "created_utc": 1770000500}},
			{"data": {"title": "", "permalink": "/r/technology/comments/5/", "subreddit": "technology", "score": 10}}
		]
	}
}`

type redditTestServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []string
	windows  []string
}

func newRedditTestServer(t *testing.T) *redditTestServer {
	t.Helper()
	rts := &redditTestServer{}
	rts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rts.mu.Lock()
		rts.requests = append(rts.requests, r.URL.Path)
		rts.windows = append(rts.windows, r.URL.Query().Get("t"))
		rts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, redditListingFixture)
	}))
	t.Cleanup(rts.Close)
	return rts
}

func TestFetchPostsFiltersAndSorts(t *testing.T) {
	srv := newRedditTestServer(t)
	f := NewFetcher(testLogger(), WithRedditBaseURL(srv.URL))

	items := f.FetchPosts(context.Background(), nil, model.Timeframe24h)

	// 3 default subreddits, each returning the same fixture: pinned,
	// age-restricted, and titleless posts are excluded; the rest merge
	// and dedupe happens downstream, so here 2 posts per source.
	require.Len(t, items, 6)
	for _, it := range items {
		assert.Equal(t, model.ItemTypePost, it.ItemType)
		assert.True(t, strings.HasPrefix(it.SourceID, "https://www.reddit.com/r/"))
		assert.NotEmpty(t, it.Title)
		assert.NotNil(t, it.PublishedAt)
	}
	// Sorted by score descending.
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
	}
	assert.Equal(t, "Top post", items[0].Title)
	assert.Equal(t, 314, items[0].Score)
	assert.Equal(t, 88, items[0].NumComments)
	assert.Equal(t, "r/technology", items[0].SourceName)
}

func TestFetchPostsMapsTimeframeWindow(t *testing.T) {
	cases := map[model.Timeframe]string{
		model.Timeframe24h: "day",
		model.Timeframe7d:  "week",
		model.Timeframe30d: "month",
	}
	for tf, want := range cases {
		srv := newRedditTestServer(t)
		f := NewFetcher(testLogger(), WithRedditBaseURL(srv.URL))
		f.FetchPosts(context.Background(), nil, tf)

		srv.mu.Lock()
		for _, got := range srv.windows {
			assert.Equal(t, want, got)
		}
		srv.mu.Unlock()
	}
}

func TestFetchPostsBoundsSourceCount(t *testing.T) {
	srv := newRedditTestServer(t)
	f := NewFetcher(testLogger(), WithRedditBaseURL(srv.URL))

	topics := []string{"golang", "rust", "python", "java", "kotlin", "swift"}
	f.FetchPosts(context.Background(), topics, model.Timeframe7d)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Len(t, srv.requests, maxCommunitySources)
}

func TestFetchPostsSurvivesFailingListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/r/technology/") {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, redditListingFixture)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(testLogger(), WithRedditBaseURL(srv.URL))
	items := f.FetchPosts(context.Background(), nil, model.Timeframe24h)

	// technology failed; programming and startups still contribute.
	assert.Len(t, items, 4)
}
