// Package database provides SQLite storage for the trending cache.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/authrax/trending/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trend_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		source_id TEXT NOT NULL,
		item_type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT DEFAULT '',
		source_name TEXT DEFAULT '',
		category TEXT DEFAULT '',
		score INTEGER DEFAULT 0,
		num_comments INTEGER DEFAULT 0,
		author TEXT DEFAULT '',
		published_at DATETIME,
		fetched_at DATETIME NOT NULL,
		UNIQUE(topic, timeframe, source_id)
	);
	CREATE INDEX IF NOT EXISTS idx_trend_cache_lookup ON trend_cache(topic, timeframe, fetched_at);
	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		source_url TEXT DEFAULT '',
		source_title TEXT DEFAULT '',
		used INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations(user_id, used, expires_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Trending cache ---

// LookupTrending returns fresh cache entries for a (topic, timeframe) key.
func (db *DB) LookupTrending(topic string, tf model.Timeframe, minFetchedAt time.Time) ([]model.CacheEntry, error) {
	rows, err := db.conn.Query(`
		SELECT topic, timeframe, source_id, item_type, title, description,
		       source_name, category, score, num_comments, author, published_at, fetched_at
		FROM trend_cache
		WHERE topic = ? AND timeframe = ? AND fetched_at > ?
		ORDER BY score DESC, published_at DESC`,
		topic, string(tf), minFetchedAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCacheEntries(rows)
}

// WriteTrending inserts entries, silently skipping already-cached keys.
// Returns the number of rows actually written.
func (db *DB) WriteTrending(entries []model.CacheEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO trend_cache (topic, timeframe, source_id, item_type, title, description,
			source_name, category, score, num_comments, author, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic, timeframe, source_id) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for _, e := range entries {
		var publishedAt sql.NullTime
		if e.PublishedAt != nil {
			publishedAt = sql.NullTime{Time: *e.PublishedAt, Valid: true}
		}
		res, err := stmt.Exec(e.Topic, string(e.Timeframe), e.SourceID, string(e.ItemType),
			e.Title, e.Description, e.SourceName, e.Category, e.Score, e.NumComments,
			e.Author, publishedAt, e.FetchedAt)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("write entry %s: %w", e.SourceID, err)
		}
		affected, _ := res.RowsAffected()
		written += int(affected)
	}
	return written, tx.Commit()
}

func scanCacheEntries(rows *sql.Rows) ([]model.CacheEntry, error) {
	var entries []model.CacheEntry
	for rows.Next() {
		var e model.CacheEntry
		var tf, itemType string
		var publishedAt sql.NullTime
		if err := rows.Scan(&e.Topic, &tf, &e.SourceID, &itemType, &e.Title, &e.Description,
			&e.SourceName, &e.Category, &e.Score, &e.NumComments, &e.Author, &publishedAt, &e.FetchedAt); err != nil {
			return nil, err
		}
		e.Timeframe = model.Timeframe(tf)
		e.ItemType = model.ItemType(itemType)
		if publishedAt.Valid {
			t := publishedAt.Time
			e.PublishedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Recommendations ---

// ActiveRecommendations returns unused, unexpired recommendations for a user.
func (db *DB) ActiveRecommendations(userID string, now time.Time) ([]model.RecommendedPost, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, topic, title, content, source_url, source_title, used, created_at, expires_at
		FROM recommendations
		WHERE user_id = ? AND used = 0 AND expires_at > ?
		ORDER BY created_at DESC`,
		userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []model.RecommendedPost
	for rows.Next() {
		var p model.RecommendedPost
		if err := rows.Scan(&p.ID, &p.UserID, &p.Topic, &p.Title, &p.Content,
			&p.SourceURL, &p.SourceTitle, &p.Used, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SaveRecommendations persists a batch of drafted posts.
func (db *DB) SaveRecommendations(posts []model.RecommendedPost) error {
	if len(posts) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO recommendations (id, user_id, topic, title, content, source_url, source_title, used, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, p := range posts {
		if _, err := stmt.Exec(p.ID, p.UserID, p.Topic, p.Title, p.Content,
			p.SourceURL, p.SourceTitle, p.Used, p.CreatedAt, p.ExpiresAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("save recommendation %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// MarkRecommendationUsed flags a recommendation as used.
func (db *DB) MarkRecommendationUsed(id string) error {
	res, err := db.conn.Exec("UPDATE recommendations SET used = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
