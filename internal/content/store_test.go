package content

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	internaldb "github.com/metalagman/pathwise/internal/db"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := internaldb.Open(filepath.Join(t.TempDir(), "pathwise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStore_SaveAndLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(openTestDB(t))

	_, ok := s.LookupCachedContent(ctx, "https://docs.example.com/intro")
	require.False(t, ok)

	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "https://docs.example.com/intro", Body: "v1"}))
	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "https://docs.example.com/intro", Body: "v2"}))

	rc, ok := s.LookupCachedContent(ctx, "https://docs.example.com/intro")
	require.True(t, ok)
	assert.Equal(t, "v2", rc.Body)
	assert.False(t, rc.RetrievedAt.IsZero())
}

func TestStore_FragmentSharesEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(openTestDB(t))

	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "https://x.example/doc", Body: "doc"}))

	rc, ok := s.LookupCachedContent(ctx, "https://x.example/doc#intro")
	require.True(t, ok)
	assert.Equal(t, "doc", rc.Body)
	assert.Equal(t, "https://x.example/doc", rc.SourceID)
}

func TestStore_LookupFailsOpen(t *testing.T) {
	t.Parallel()

	conn := openTestDB(t)
	s := NewStore(conn)
	require.NoError(t, conn.Close())

	_, ok := s.LookupCachedContent(context.Background(), "https://a.example")
	assert.False(t, ok)
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(openTestDB(t))
	now := time.Now().UTC()
	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "old", Body: "abc", RetrievedAt: now.Add(-time.Hour)}))
	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "new", Body: "abcdef", RetrievedAt: now}))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].SourceID)
	assert.Equal(t, 6, entries[0].Size)
	assert.Equal(t, "old", entries[1].SourceID)
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(openTestDB(t))
	now := time.Now().UTC()
	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "fresh", Body: "x", RetrievedAt: now}))
	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "stale-1", Body: "x", RetrievedAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, s.Save(ctx, model.RetrievedContext{SourceID: "stale-2", Body: "x", RetrievedAt: now.Add(-50 * 24 * time.Hour)}))

	dry, err := s.Prune(ctx, RetentionPolicy{KeepDays: 30}, true)
	require.NoError(t, err)
	assert.Equal(t, PruneResult{Considered: 3, Kept: 1, Deleted: 2}, dry)

	res, err := s.Prune(ctx, RetentionPolicy{KeepDays: 30, KeepLast: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, PruneResult{Considered: 3, Kept: 2, Deleted: 1}, res)

	_, ok := s.LookupCachedContent(ctx, "stale-2")
	assert.False(t, ok)
	_, ok = s.LookupCachedContent(ctx, "stale-1")
	assert.True(t, ok)
}

func TestStore_PruneWithoutPolicyIsNoop(t *testing.T) {
	t.Parallel()

	res, err := NewStore(openTestDB(t)).Prune(context.Background(), RetentionPolicy{}, false)
	require.NoError(t, err)
	assert.Zero(t, res)
}
