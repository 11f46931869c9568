package database

import (
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/authrax/trending/internal/model"
)

// MemoryStore is an in-memory Store. It backs tests and zero-setup local
// runs; contents are lost on shutdown.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[memKey]model.CacheEntry
	posts   []model.RecommendedPost
}

type memKey struct {
	topic     string
	timeframe model.Timeframe
	sourceID  string
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[memKey]model.CacheEntry)}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// DatabaseType returns the database backend name.
func (m *MemoryStore) DatabaseType() string { return "Memory" }

// LookupTrending returns fresh cache entries for a (topic, timeframe) key.
func (m *MemoryStore) LookupTrending(topic string, tf model.Timeframe, minFetchedAt time.Time) ([]model.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CacheEntry
	for k, e := range m.entries {
		if k.topic != topic || k.timeframe != tf {
			continue
		}
		if !e.FetchedAt.After(minFetchedAt) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		pi, pj := out[i].PublishedAt, out[j].PublishedAt
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return pi.After(*pj)
	})
	return out, nil
}

// WriteTrending inserts entries, silently skipping already-cached keys.
func (m *MemoryStore) WriteTrending(entries []model.CacheEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	written := 0
	for _, e := range entries {
		k := memKey{e.Topic, e.Timeframe, e.SourceID}
		if _, ok := m.entries[k]; ok {
			continue
		}
		m.entries[k] = e
		written++
	}
	return written, nil
}

// ActiveRecommendations returns unused, unexpired recommendations for a user.
func (m *MemoryStore) ActiveRecommendations(userID string, now time.Time) ([]model.RecommendedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RecommendedPost
	for _, p := range m.posts {
		if p.UserID != userID || p.Used || !p.ExpiresAt.After(now) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SaveRecommendations persists a batch of drafted posts.
func (m *MemoryStore) SaveRecommendations(posts []model.RecommendedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, posts...)
	return nil
}

// MarkRecommendationUsed flags a recommendation as used.
func (m *MemoryStore) MarkRecommendationUsed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == id {
			m.posts[i].Used = true
			return nil
		}
	}
	return sql.ErrNoRows
}
