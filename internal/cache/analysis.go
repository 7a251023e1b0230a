// Package cache persists raw deep-analysis replies in SQLite so repeated
// analyses of the same prompt do not hit the provider again.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// AnalysisCache maps a request key to the raw reply text.
type AnalysisCache struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// Stats reports current usage of the cache.
type Stats struct {
	Entries    int
	TotalBytes int64
}

// Open opens (or creates) the cache at dbPath. Entries older than maxAge
// are treated as misses; zero keeps entries forever.
func Open(dbPath string, maxAge time.Duration) (*AnalysisCache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			key        TEXT PRIMARY KEY,
			provider   TEXT NOT NULL,
			model      TEXT NOT NULL,
			response   TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &AnalysisCache{db: db, maxAge: maxAge, now: time.Now}, nil
}

// Get returns the cached reply for key. A miss is ("", false, nil).
func (c *AnalysisCache) Get(ctx context.Context, key string) (string, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT response, created_at FROM analysis_cache WHERE key = ?`, key)

	var response string
	var createdAt int64
	if err := row.Scan(&response, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get analysis: %w", err)
	}

	if c.maxAge > 0 && c.now().Sub(time.Unix(0, createdAt)) > c.maxAge {
		return "", false, nil
	}
	return response, true, nil
}

// Put stores or replaces the reply for key.
func (c *AnalysisCache) Put(ctx context.Context, key, providerID, model, response string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO analysis_cache(key, provider, model, response, created_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET provider=excluded.provider, model=excluded.model,
		   response=excluded.response, created_at=excluded.created_at`,
		key, providerID, model, response, c.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put analysis: %w", err)
	}
	return nil
}

// Prune deletes entries older than maxAge and returns how many were removed.
func (c *AnalysisCache) Prune(ctx context.Context) (int64, error) {
	if c.maxAge <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.maxAge).UnixNano()
	res, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns current cache statistics.
func (c *AnalysisCache) Stats(ctx context.Context) (*Stats, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(response)), 0) FROM analysis_cache`)
	var stats Stats
	if err := row.Scan(&stats.Entries, &stats.TotalBytes); err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	return &stats, nil
}

// Clear removes all cached entries.
func (c *AnalysisCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM analysis_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *AnalysisCache) Close() error {
	return c.db.Close()
}
