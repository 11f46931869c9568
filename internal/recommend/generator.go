// Package recommend drafts post candidates grounded in trending content.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/authrax/trending/internal/database"
	"github.com/authrax/trending/internal/llm"
	"github.com/authrax/trending/internal/model"
	"github.com/authrax/trending/internal/trending"
	"github.com/google/uuid"
)

const (
	// minActive is how many unused, unexpired recommendations must exist
	// before a request is served without drafting new ones.
	minActive = 3

	// maxTopics bounds how many topics get a drafting call per request.
	maxTopics = 3

	// maxContextItems bounds the grounding context per topic.
	maxContextItems = 5

	// draftsPerTopic is how many drafts each call asks for.
	draftsPerTopic = 2

	// minGroundingItems is the cache floor below which the aggregator
	// fetch path is triggered before drafting.
	minGroundingItems = 3

	// retention is how long a recommendation stays servable.
	retention = 7 * 24 * time.Hour
)

// groundingTimeframe is the window recommendations draw trending items from.
const groundingTimeframe = model.Timeframe7d

const systemPrompt = "You are a professional ghostwriter for LinkedIn. " +
	"You draft concise, insightful posts that sound like a practitioner sharing a considered take, never like marketing copy."

// Generator produces AI-drafted post candidates from cached trending items.
type Generator struct {
	store      database.Store
	aggregator *trending.Aggregator
	chat       llm.ChatClient
	chatModel  string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a generator.
func New(store database.Store, aggregator *trending.Aggregator, chat llm.ChatClient, chatModel string, logger *slog.Logger) *Generator {
	return &Generator{
		store:      store,
		aggregator: aggregator,
		chat:       chat,
		chatModel:  chatModel,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the generator's clock. Tests only.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate serves one recommendation request: existing active drafts when
// enough remain, freshly drafted ones otherwise.
func (g *Generator) Generate(ctx context.Context, req model.RecommendationRequest) (*model.RecommendationResponse, error) {
	now := g.now()

	active, err := g.store.ActiveRecommendations(req.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("load recommendations for %q: %w", req.UserID, err)
	}
	if len(active) >= minActive && !req.ForceRefresh {
		return &model.RecommendationResponse{Recommendations: active, Cached: true}, nil
	}

	topics := model.NormalizeTopics(req.Topics)
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}

	var drafted []model.RecommendedPost
	for _, topic := range topics {
		items, err := g.groundingItems(ctx, topic)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			g.logger.Warn("no trending items for topic, skipping", "topic", topic)
			continue
		}
		posts := g.draftForTopic(ctx, req.UserID, topic, items, now)
		drafted = append(drafted, posts...)
	}

	if len(drafted) > 0 {
		if err := g.store.SaveRecommendations(drafted); err != nil {
			// Persistence feeds later display and usage tracking; the
			// drafts themselves are still good, so serve them.
			g.logger.Warn("saving recommendations failed", "user", req.UserID, "err", err)
		}
	}

	return &model.RecommendationResponse{Recommendations: drafted, Cached: false}, nil
}

// groundingItems pulls cached trending items for a topic, triggering the
// aggregator fetch path when the cache is too thin to ground a draft.
func (g *Generator) groundingItems(ctx context.Context, topic string) ([]model.CacheEntry, error) {
	minFetchedAt := g.now().Add(-groundingTimeframe.FreshnessWindow())
	items, err := g.store.LookupTrending(topic, groundingTimeframe, minFetchedAt)
	if err != nil {
		return nil, fmt.Errorf("trending lookup for %q: %w", topic, err)
	}
	if len(items) >= minGroundingItems {
		return items, nil
	}

	// Thin cache: run an aggregation to populate it, then re-read.
	_, err = g.aggregator.Aggregate(ctx, model.TrendingRequest{
		Topics:    []string{topic},
		Type:      string(model.ContentTypeAll),
		Page:      1,
		Timeframe: string(groundingTimeframe),
	})
	if err != nil {
		return nil, fmt.Errorf("refresh trending for %q: %w", topic, err)
	}
	items, err = g.store.LookupTrending(topic, groundingTimeframe, minFetchedAt)
	if err != nil {
		return nil, fmt.Errorf("trending lookup for %q: %w", topic, err)
	}
	return items, nil
}

// draftForTopic issues one drafting call for a topic. Any failure drops the
// topic's batch and is logged; other topics are unaffected.
func (g *Generator) draftForTopic(ctx context.Context, userID, topic string, items []model.CacheEntry, now time.Time) []model.RecommendedPost {
	if len(items) > maxContextItems {
		items = items[:maxContextItems]
	}

	resp, err := g.chat.ChatCompletion(ctx, llm.ChatCompletionRequest{
		Model: g.chatModel,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(topic, items)},
		},
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		g.logger.Warn("drafting call failed", "topic", topic, "err", err)
		return nil
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("empty drafting response", "topic", topic)
		return nil
	}

	drafts, err := parseDrafts(resp.Choices[0].Message.Content)
	if err != nil {
		g.logger.Warn("unparseable drafting response", "topic", topic, "err", err)
		return nil
	}
	if len(drafts) > draftsPerTopic {
		drafts = drafts[:draftsPerTopic]
	}

	posts := make([]model.RecommendedPost, 0, len(drafts))
	for i, d := range drafts {
		src := items[0]
		if i < len(items) {
			src = items[i]
		}
		posts = append(posts, model.RecommendedPost{
			ID:          uuid.NewString(),
			UserID:      userID,
			Topic:       topic,
			Title:       d.Title,
			Content:     d.Content,
			SourceURL:   src.SourceID,
			SourceTitle: src.Title,
			CreatedAt:   now,
			ExpiresAt:   now.Add(retention),
		})
	}
	return posts
}

// buildPrompt lays out the grounding context and the required output shape.
func buildPrompt(topic string, items []model.CacheEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are current trending items about %q:\n\n", topic)
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, it.Title, it.SourceName)
		if it.Description != "" {
			fmt.Fprintf(&b, "   %s\n", it.Description)
		}
	}
	fmt.Fprintf(&b, "\nDraft exactly %d LinkedIn posts inspired by these items. ", draftsPerTopic)
	b.WriteString(`Respond with ONLY a JSON array of objects, each with "title" and "content" fields. No other text.`)
	return b.String()
}

// draft is one JSON-structured post candidate from the model.
type draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// jsonArrayPattern matches the first bracket-delimited block, so prose the
// model wraps around the array doesn't break parsing.
var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseDrafts defensively extracts a JSON array of drafts from free-form
// model output.
func parseDrafts(text string) ([]draft, error) {
	raw := jsonArrayPattern.FindString(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var drafts []draft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		return nil, fmt.Errorf("decode drafts: %w", err)
	}
	var out []draft
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Content) == "" {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable drafts in response")
	}
	return out, nil
}
