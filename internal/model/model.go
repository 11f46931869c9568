// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// ItemType distinguishes editorial news items from community posts.
type ItemType string

// Known item types.
const (
	ItemTypeNews ItemType = "news"
	ItemTypePost ItemType = "post"
)

// ContentType selects which item types an aggregation request wants.
type ContentType string

// Known content types.
const (
	ContentTypeAll   ContentType = "all"
	ContentTypeNews  ContentType = "news"
	ContentTypePosts ContentType = "posts"
)

// ParseContentType maps a request value to a known content type.
// Unrecognized values fall back to "all".
func ParseContentType(s string) ContentType {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentTypeNews:
		return ContentTypeNews
	case ContentTypePosts:
		return ContentTypePosts
	default:
		return ContentTypeAll
	}
}

// WantsNews reports whether news items should be fetched.
func (ct ContentType) WantsNews() bool {
	return ct == ContentTypeAll || ct == ContentTypeNews
}

// WantsPosts reports whether community posts should be fetched.
func (ct ContentType) WantsPosts() bool {
	return ct == ContentTypeAll || ct == ContentTypePosts
}

// TrendingItem is a normalized external content unit from any source.
type TrendingItem struct {
	ItemType    ItemType   `json:"itemType"`
	SourceID    string     `json:"sourceId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	SourceName  string     `json:"sourceName,omitempty"`
	Category    string     `json:"category,omitempty"`
	Score       int        `json:"score,omitempty"`
	NumComments int        `json:"numComments,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"` // nil when the source has no reliable date
}

// CacheEntry is a TrendingItem persisted under a (topic, timeframe) partition.
type CacheEntry struct {
	Topic     string
	Timeframe Timeframe
	FetchedAt time.Time
	TrendingItem
}

// RecommendedPost is an AI-drafted post grounded in a trending item.
type RecommendedPost struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	SourceTitle string    `json:"sourceTitle,omitempty"`
	Used        bool      `json:"used"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// TrendingRequest is the aggregation entry point request body.
type TrendingRequest struct {
	Topics    []string `json:"topics"`
	Type      string   `json:"type"`
	Page      int      `json:"page"`
	Timeframe string   `json:"timeframe"`
}

// TrendingResponse is the aggregation entry point response body.
type TrendingResponse struct {
	News         []TrendingItem `json:"news"`
	Posts        []TrendingItem `json:"posts"`
	HasMoreNews  bool           `json:"hasMoreNews"`
	HasMorePosts bool           `json:"hasMorePosts"`
	TotalNews    int            `json:"totalNews"`
	TotalPosts   int            `json:"totalPosts"`
	Cached       bool           `json:"cached"`
}

// RecommendationRequest is the recommendation entry point request body.
type RecommendationRequest struct {
	UserID       string   `json:"userId"`
	Topics       []string `json:"topics"`
	ForceRefresh bool     `json:"forceRefresh,omitempty"`
}

// RecommendationResponse is the recommendation entry point response body.
type RecommendationResponse struct {
	Recommendations []RecommendedPost `json:"recommendations"`
	Cached          bool              `json:"cached"`
}

// NormalizeTopics lowercases and trims topics, dropping empties and
// duplicates while preserving order.
func NormalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	var out []string
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
