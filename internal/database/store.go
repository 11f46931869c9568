// Package database provides storage backends for the trending cache.
package database

import (
	"time"

	"github.com/authrax/trending/internal/model"
)

// Store defines the interface for database operations.
// SQLite, PostgreSQL, and the in-memory implementation all satisfy it.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend.
	DatabaseType() string

	// Trending cache operations.
	//
	// LookupTrending returns entries for (topic, timeframe) whose
	// fetched_at is strictly newer than minFetchedAt, ordered by score
	// descending then published date descending. Staleness is enforced
	// entirely through minFetchedAt; the store has no TTL logic.
	LookupTrending(topic string, tf model.Timeframe, minFetchedAt time.Time) ([]model.CacheEntry, error)

	// WriteTrending inserts entries keyed by (topic, timeframe,
	// source_id). A colliding key is a silent no-op, never an update, so
	// repeated writes are idempotent. Returns the number of rows
	// actually written.
	WriteTrending(entries []model.CacheEntry) (int, error)

	// Recommendation operations.
	ActiveRecommendations(userID string, now time.Time) ([]model.RecommendedPost, error)
	SaveRecommendations(posts []model.RecommendedPost) error
	MarkRecommendationUsed(id string) error
}
