package contextstore

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/metalagman/pathwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordAndLookup(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok := s.Lookup("https://a.example")
	require.False(t, ok)

	s.Record("https://a.example", "alpha")
	rc, ok := s.Lookup("https://a.example")
	require.True(t, ok)
	assert.Equal(t, "alpha", rc.Body)
	assert.False(t, rc.RetrievedAt.IsZero())
}

func TestStore_OverwriteKeepsPosition(t *testing.T) {
	t.Parallel()

	s := New()
	s.Record("a", "1")
	s.Record("b", "2")
	s.Record("a", "3")

	assert.Equal(t, []string{"a", "b"}, s.Sources())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "### Source: a\n3\n\n### Source: b\n2\n\n", s.RenderBlock(0))
}

func TestStore_RenderBlockIsDeterministicAndBounded(t *testing.T) {
	t.Parallel()

	s := New()
	s.Record("first", "ééééé")
	s.Record("second", "zzzzz")

	full := s.RenderBlock(0)
	for budget := 1; budget < utf8.RuneCountInString(full); budget += 3 {
		got := s.RenderBlock(budget)
		assert.Equal(t, budget, utf8.RuneCountInString(got))
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, got, s.RenderBlock(budget))
		assert.Equal(t, full[:len(got)], got)
	}
	assert.Equal(t, full, s.RenderBlock(DefaultBudget))
}

func TestStore_PutKeepsTimestamp(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New()
	s.Put(model.RetrievedContext{SourceID: "x", Body: "cached", RetrievedAt: at})

	rc, ok := s.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, at, rc.RetrievedAt)
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	s := New()
	s.Record("a", "1")
	s.Reset()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.RenderBlock(100))
}
