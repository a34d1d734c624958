package curriculum

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned for unknown curriculum ids.
var ErrNotFound = errors.New("curriculum not found")

// Store persists curricula in the curricula table.
type Store struct {
	db *sql.DB
}

// NewStore creates a curriculum store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts rec.
func (s *Store) Save(ctx context.Context, rec Record) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	body, err := json.Marshal(rec.Curriculum)
	if err != nil {
		return fmt.Errorf("encode curriculum: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO curricula(id, goal, params_json, body_json, created_at) VALUES(?, ?, ?, ?, ?)`,
		rec.ID, rec.Goal, string(params), string(body), rec.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert curriculum: %w", err)
	}
	return nil
}

// Get loads the curriculum with id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, goal, params_json, body_json, created_at FROM curricula WHERE id=?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns stored curricula, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, goal, params_json, body_json, created_at FROM curricula ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list curricula: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curricula: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var params, body, createdAt string
	if err := sc.Scan(&rec.ID, &rec.Goal, &params, &body, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan curriculum: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return Record{}, fmt.Errorf("decode params: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Curriculum); err != nil {
		return Record{}, fmt.Errorf("decode curriculum: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return rec, nil
}
