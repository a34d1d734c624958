package content

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy controls cache cleanup.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// Prune deletes cache entries outside the retention policy. An entry is kept
// when it is among the KeepLast newest or younger than KeepDays. Entries whose
// timestamp cannot be parsed are kept.
func (s *Store) Prune(ctx context.Context, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source_id, retrieved_at FROM content_cache ORDER BY retrieved_at DESC`)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list content: %w", err)
	}
	type row struct {
		id       string
		at       time.Time
		parseErr error
	}
	var entries []row
	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			_ = rows.Close()
			return PruneResult{}, fmt.Errorf("scan content: %w", err)
		}
		parsed, parseErr := time.Parse(time.RFC3339, at)
		entries = append(entries, row{id: id, at: parsed, parseErr: parseErr})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return PruneResult{}, fmt.Errorf("iterate content: %w", err)
	}
	_ = rows.Close()

	res := PruneResult{Considered: len(entries)}
	for idx, e := range entries {
		keep := policy.KeepLast > 0 && idx < policy.KeepLast
		if !keep && policy.KeepDays > 0 {
			keep = e.parseErr != nil || e.at.After(cutoff)
		}
		if keep {
			res.Kept++
			continue
		}
		if !dryRun {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM content_cache WHERE source_id=?`, e.id); err != nil {
				return res, fmt.Errorf("delete content %s: %w", e.id, err)
			}
		}
		res.Deleted++
	}
	return res, nil
}
