package recommend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/authrax/trending/internal/database"
	"github.com/authrax/trending/internal/llm"
	"github.com/authrax/trending/internal/model"
	"github.com/authrax/trending/internal/trending"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	response string
	err      error
	calls    int
}

func (s *stubChat) ChatCompletion(ctx context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var resp llm.ChatCompletionResponse
	resp.Choices = []llm.Choice{{}}
	resp.Choices[0].Message.Content = s.response
	return &resp, nil
}

type stubSource struct {
	news      []model.TrendingItem
	newsCalls int
}

func (s *stubSource) FetchNews(ctx context.Context) []model.TrendingItem {
	s.newsCalls++
	return s.news
}

func (s *stubSource) FetchPosts(ctx context.Context, topics []string, tf model.Timeframe) []model.TrendingItem {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGenerator(store database.Store, source trending.Source, chat llm.ChatClient, now time.Time) *Generator {
	clock := func() time.Time { return now }
	agg := trending.New(store, source, testLogger()).WithClock(clock)
	return New(store, agg, chat, "test-model", testLogger()).WithClock(clock)
}

func seedTrending(t *testing.T, store database.Store, topic string, n int, fetchedAt time.Time) {
	t.Helper()
	var entries []model.CacheEntry
	for i := 0; i < n; i++ {
		entries = append(entries, model.CacheEntry{
			Topic:     topic,
			Timeframe: model.Timeframe7d,
			FetchedAt: fetchedAt,
			TrendingItem: model.TrendingItem{
				ItemType:   model.ItemTypeNews,
				SourceID:   fmt.Sprintf("https://example.com/%s/%d", topic, i),
				Title:      fmt.Sprintf("%s item %d", topic, i),
				SourceName: "Test Feed",
			},
		})
	}
	_, err := store.WriteTrending(entries)
	require.NoError(t, err)
}

const wrappedDraftsResponse = `Sure thing! Here are your posts:

[
  {"title": "First take", "content": "Body of the first post."},
  {"title": "Second take", "content": "Body of the second post."}
]

Let me know if you'd like more.`

func TestGenerateDraftsFromTrendingItems(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	seedTrending(t, store, "ai", 5, now.Add(-time.Minute))
	chat := &stubChat{response: wrappedDraftsResponse}
	gen := newGenerator(store, &stubSource{}, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"AI"},
	})
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, 1, chat.calls)
	for _, rec := range resp.Recommendations {
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, "ai", rec.Topic)
		assert.NotEmpty(t, rec.Title)
		assert.NotEmpty(t, rec.Content)
		// Provenance points back at a grounding item.
		assert.Contains(t, rec.SourceURL, "https://example.com/ai/")
		assert.NotEmpty(t, rec.SourceTitle)
		assert.True(t, rec.ExpiresAt.After(now))
	}

	// Drafts were persisted and now count as active.
	active, err := store.ActiveRecommendations("u1", now)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestGenerateServesActiveRecommendations(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	var posts []model.RecommendedPost
	for i := 0; i < 3; i++ {
		posts = append(posts, model.RecommendedPost{
			ID: fmt.Sprintf("r%d", i), UserID: "u1", Topic: "ai",
			Title: "t", Content: "c",
			CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
		})
	}
	require.NoError(t, store.SaveRecommendations(posts))

	chat := &stubChat{response: wrappedDraftsResponse}
	gen := newGenerator(store, &stubSource{}, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"ai"},
	})
	require.NoError(t, err)

	assert.True(t, resp.Cached)
	assert.Len(t, resp.Recommendations, 3)
	assert.Zero(t, chat.calls)
}

func TestGenerateForceRefreshBypassesActive(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	var posts []model.RecommendedPost
	for i := 0; i < 3; i++ {
		posts = append(posts, model.RecommendedPost{
			ID: fmt.Sprintf("r%d", i), UserID: "u1", Topic: "ai",
			Title: "t", Content: "c",
			CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
		})
	}
	require.NoError(t, store.SaveRecommendations(posts))
	seedTrending(t, store, "ai", 5, now.Add(-time.Minute))

	chat := &stubChat{response: wrappedDraftsResponse}
	gen := newGenerator(store, &stubSource{}, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"ai"}, ForceRefresh: true,
	})
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	assert.Equal(t, 1, chat.calls)
}

func TestGenerateMalformedResponseSkipsTopic(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	seedTrending(t, store, "ai", 5, now.Add(-time.Minute))
	chat := &stubChat{response: "I'm sorry, I can't produce JSON today."}
	gen := newGenerator(store, &stubSource{}, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"ai"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Recommendations)
	assert.False(t, resp.Cached)
}

func TestGenerateChatFailureSkipsTopic(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	seedTrending(t, store, "ai", 5, now.Add(-time.Minute))
	chat := &stubChat{err: errors.New("upstream 500")}
	gen := newGenerator(store, &stubSource{}, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"ai"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Recommendations)
}

func TestGenerateThinCacheTriggersAggregator(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	published := now.Add(-time.Hour)
	source := &stubSource{news: []model.TrendingItem{
		{ItemType: model.ItemTypeNews, SourceID: "https://example.com/1", Title: "AI launch coverage", PublishedAt: &published},
		{ItemType: model.ItemTypeNews, SourceID: "https://example.com/2", Title: "More ai analysis", PublishedAt: &published},
	}}
	chat := &stubChat{response: wrappedDraftsResponse}
	gen := newGenerator(store, source, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"ai"},
	})
	require.NoError(t, err)

	// The empty cache forced one aggregation pass before drafting.
	assert.Equal(t, 1, source.newsCalls)
	assert.Len(t, resp.Recommendations, 2)
}

func TestGenerateCapsTopics(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := database.NewMemory()
	for _, topic := range []string{"ai", "rust", "golang", "devops"} {
		seedTrending(t, store, topic, 5, now.Add(-time.Minute))
	}
	chat := &stubChat{response: wrappedDraftsResponse}
	gen := newGenerator(store, &stubSource{}, chat, now)

	resp, err := gen.Generate(context.Background(), model.RecommendationRequest{
		UserID: "u1", Topics: []string{"ai", "rust", "golang", "devops"},
	})
	require.NoError(t, err)

	// Only the first three topics get a drafting call.
	assert.Equal(t, 3, chat.calls)
	assert.Len(t, resp.Recommendations, 6)
}

func TestParseDrafts(t *testing.T) {
	drafts, err := parseDrafts(wrappedDraftsResponse)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "First take", drafts[0].Title)
	assert.Equal(t, "Body of the second post.", drafts[1].Content)
}

func TestParseDraftsBareArray(t *testing.T) {
	drafts, err := parseDrafts(`[{"title":"T","content":"C"}]`)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestParseDraftsRejectsGarbage(t *testing.T) {
	_, err := parseDrafts("no brackets here")
	assert.Error(t, err)

	_, err = parseDrafts("[not json]")
	assert.Error(t, err)

	// Structurally valid but unusable drafts are rejected too.
	_, err = parseDrafts(`[{"title":"","content":""}]`)
	assert.Error(t, err)
}
