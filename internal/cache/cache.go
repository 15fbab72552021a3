package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"horizons/internal/textutil"
)

// DB is the part of *pgxpool.Pool the cache uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS horizons_responses (
	hash       TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	body       TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ResponseCache keeps raw Horizons responses in memory and, when a database
// is configured, in PostgreSQL. Entries are keyed by the hash of the query.
type ResponseCache struct {
	db     DB
	mu     sync.RWMutex
	memory map[string]string // hash → response body
}

// NewResponseCache creates a cache. db may be nil for a memory-only cache.
func NewResponseCache(db DB) *ResponseCache {
	return &ResponseCache{
		db:     db,
		memory: make(map[string]string),
	}
}

// EnsureSchema creates the backing table.
func (c *ResponseCache) EnsureSchema(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if _, err := c.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create response cache table: %w", err)
	}
	return nil
}

// Get returns the cached response for query.
func (c *ResponseCache) Get(ctx context.Context, query string) (string, bool) {
	hash := textutil.Hash(query)

	c.mu.RLock()
	if v, ok := c.memory[hash]; ok {
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	if c.db == nil {
		return "", false
	}

	var body string
	err := c.db.QueryRow(ctx, `SELECT body FROM horizons_responses WHERE hash = $1`, hash).Scan(&body)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Str("hash", hash).Msg("Response cache lookup failed")
		}
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = body
	c.mu.Unlock()

	return body, true
}

// Put stores a response in memory and in PostgreSQL.
func (c *ResponseCache) Put(ctx context.Context, query, body string) error {
	hash := textutil.Hash(query)

	c.mu.Lock()
	c.memory[hash] = body
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	_, err := c.db.Exec(ctx, `
		INSERT INTO horizons_responses (hash, query, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO UPDATE SET body = EXCLUDED.body, fetched_at = now()
	`, hash, query, body)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	log.Debug().Str("hash", hash).Int("bytes", len(body)).Msg("Cached Horizons response")
	return nil
}

// Len reports how many responses are held in memory.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}
