// Package db owns the pathwise SQLite file: the content cache, crawl jobs and
// stored curricula all live in one database migrated by goose.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type pragma struct {
	stmt     string
	optional bool
}

// journal_mode=WAL is optional; not every filesystem supports it.
var pragmas = []pragma{
	{stmt: "PRAGMA foreign_keys=ON"},
	{stmt: "PRAGMA busy_timeout=5000"},
	{stmt: "PRAGMA journal_mode=WAL", optional: true},
}

// Open returns a handle on the database at path with the schema up to date.
// path may also be ":memory:" or a "file:" DSN.
func Open(path string) (*sql.DB, error) {
	return OpenContext(context.Background(), path)
}

// OpenContext is Open bounded by ctx.
func OpenContext(ctx context.Context, path string) (*sql.DB, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Pragmas and :memory: contents are per connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := setup(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func ensureDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	return nil
}

func setup(ctx context.Context, conn *sql.DB) error {
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p.stmt); err != nil {
			if p.optional {
				log.Warn().Err(err).Str("pragma", p.stmt).Msg("sqlite pragma skipped")
				continue
			}
			return fmt.Errorf("%s: %w", p.stmt, err)
		}
	}
	return migrateUp(ctx, conn)
}

// goose configuration is process-global.
var gooseMu sync.Mutex

func migrateUp(ctx context.Context, conn *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NullableString stores "" as NULL.
func NullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
