// Package contextstore keeps the external content a session has already retrieved.
package contextstore

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/metalagman/pathwise/internal/model"
)

// DefaultBudget is the character budget for rendering the context block.
const DefaultBudget = 50000

// Store maps source identifiers to retrieved content, remembering insertion order.
type Store struct {
	mu      sync.RWMutex
	entries map[string]model.RetrievedContext
	order   []string
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]model.RetrievedContext),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Lookup returns the entry for sourceID.
func (s *Store) Lookup(sourceID string) (model.RetrievedContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.entries[sourceID]
	return rc, ok
}

// Record inserts or replaces the entry for sourceID.
// A replaced entry keeps its original position.
func (s *Store) Record(sourceID, body string) model.RetrievedContext {
	return s.Put(model.RetrievedContext{SourceID: sourceID, Body: body, RetrievedAt: s.now()})
}

// Put stores an already retrieved entry, for example a shared cache hit.
func (s *Store) Put(rc model.RetrievedContext) model.RetrievedContext {
	if rc.RetrievedAt.IsZero() {
		rc.RetrievedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[rc.SourceID]; !ok {
		s.order = append(s.order, rc.SourceID)
	}
	s.entries[rc.SourceID] = rc
	return rc
}

// Sources returns the source identifiers in insertion order.
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]model.RetrievedContext)
	s.order = nil
}

// RenderBlock concatenates all entries in insertion order, each headed by its
// source, and truncates the result to maxChars runes. A non-positive budget
// disables truncation.
func (s *Store) RenderBlock(maxChars int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, id := range s.order {
		fmt.Fprintf(&b, "### Source: %s\n%s\n\n", id, s.entries[id].Body)
	}
	out := b.String()
	if maxChars <= 0 {
		return out
	}
	return truncateRunes(out, maxChars)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
