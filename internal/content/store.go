// Package content persists retrieved pages so any session can reuse a finished crawl.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/pathwise/internal/model"
	"github.com/rs/zerolog/log"
)

// timeLayout sorts lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the shared content cache backed by the content_cache table.
type Store struct {
	db *sql.DB
}

// NewStore creates a content cache over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts or replaces the cached body for rc.SourceID, keyed by model.CanonicalSourceID.
func (s *Store) Save(ctx context.Context, rc model.RetrievedContext) error {
	rc.SourceID = model.CanonicalSourceID(rc.SourceID)
	at := rc.RetrievedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO content_cache(source_id, body, retrieved_at) VALUES(?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET body=excluded.body, retrieved_at=excluded.retrieved_at`,
		rc.SourceID, rc.Body, at.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("save content %s: %w", rc.SourceID, err)
	}
	return nil
}

// Get returns the cached entry for sourceID. URLs differing only in fragment share an entry.
func (s *Store) Get(ctx context.Context, sourceID string) (model.RetrievedContext, bool, error) {
	sourceID = model.CanonicalSourceID(sourceID)
	var body, at string
	err := s.db.QueryRowContext(ctx, `SELECT body, retrieved_at FROM content_cache WHERE source_id=?`, sourceID).Scan(&body, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RetrievedContext{}, false, nil
	}
	if err != nil {
		return model.RetrievedContext{}, false, fmt.Errorf("get content %s: %w", sourceID, err)
	}
	retrievedAt, _ := time.Parse(time.RFC3339, at)
	return model.RetrievedContext{SourceID: sourceID, Body: body, RetrievedAt: retrievedAt}, true, nil
}

// LookupCachedContent reports a cache hit for sourceID. Lookup errors are logged and treated as a miss.
func (s *Store) LookupCachedContent(ctx context.Context, sourceID string) (model.RetrievedContext, bool) {
	rc, ok, err := s.Get(ctx, sourceID)
	if err != nil {
		log.Warn().Err(err).Str("source", sourceID).Msg("content lookup failed, treating as miss")
		return model.RetrievedContext{}, false
	}
	return rc, ok
}

// Entry summarizes a cached source without its body.
type Entry struct {
	SourceID    string
	Size        int
	RetrievedAt time.Time
}

// List returns cached sources, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_id, length(body), retrieved_at FROM content_cache ORDER BY retrieved_at DESC, source_id`)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.SourceID, &e.Size, &at); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		e.RetrievedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	return out, nil
}
