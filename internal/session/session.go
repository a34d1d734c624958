// Package session holds the state of one planning conversation.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/metalagman/pathwise/internal/contextstore"
	"github.com/metalagman/pathwise/internal/model"
)

// State is the dispatch state of a session.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCompletion State = "awaiting_completion"
	StateResearch           State = "dispatching_research"
	StateSearch             State = "dispatching_search"
	StateSuggest            State = "dispatching_suggest"
	StateGenerate           State = "dispatching_generate"
	StatePlain              State = "dispatching_plain"
	StateCrawling           State = "crawling"
)

// Dispatching reports whether st is one of the dispatching states.
func (st State) Dispatching() bool {
	switch st {
	case StateResearch, StateSearch, StateSuggest, StateGenerate, StatePlain:
		return true
	}
	return false
}

var (
	// ErrBusy is returned when work is submitted to a session that is not idle.
	ErrBusy = errors.New("session is busy")
	// ErrStateViolation marks a transition the state machine does not allow.
	ErrStateViolation = errors.New("state violation")
)

func allowed(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateAwaitingCompletion || to == StateCrawling || to == StateGenerate
	case StateAwaitingCompletion:
		return to == StateIdle || to.Dispatching()
	case StateCrawling:
		return to == StateIdle
	}
	return from.Dispatching() && to == StateIdle
}

// Session aggregates the utterances, pending suggestions and retrieved context of one conversation.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	state       State
	utterances  []model.Utterance
	nextSeq     int
	suggestions []string
	scraped     string
	draft       map[string]string
	store       *contextstore.Store
}

// New returns an idle session.
func New(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		state:     StateIdle,
		nextSeq:   1,
		store:     contextstore.New(),
	}
}

// State returns the current dispatch state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin claims an idle session for a workflow. It returns ErrBusy when the session is not idle.
func (s *Session) Begin(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("session %s in %s: %w", s.ID, s.state, ErrBusy)
	}
	if !allowed(s.state, to) {
		return fmt.Errorf("begin %s: %w", to, ErrStateViolation)
	}
	s.state = to
	return nil
}

// Transition moves the session to the next state.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !allowed(s.state, to) {
		return fmt.Errorf("transition %s -> %s: %w", s.state, to, ErrStateViolation)
	}
	s.state = to
	return nil
}

// Append records an utterance, assigning its sequence number and timestamp.
func (s *Session) Append(u model.Utterance) model.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Seq = s.nextSeq
	s.nextSeq++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Kind == "" {
		u.Kind = model.KindText
	}
	s.utterances = append(s.utterances, u.Clone())
	return u.Clone()
}

// Utterances returns a copy of the conversation so far.
func (s *Session) Utterances() []model.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Utterance, len(s.utterances))
	for i, u := range s.utterances {
		out[i] = u.Clone()
	}
	return out
}

// History renders the conversation as completion turns. System notices are not part of it.
func (s *Session) History() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]model.Turn, 0, len(s.utterances))
	for _, u := range s.utterances {
		switch u.Origin {
		case model.OriginUser:
			turns = append(turns, model.Turn{Role: model.RoleUser, Content: u.Text})
		case model.OriginAssistant:
			if content := assistantContent(u); content != "" {
				turns = append(turns, model.Turn{Role: model.RoleAssistant, Content: content})
			}
		}
	}
	return turns
}

func assistantContent(u model.Utterance) string {
	switch u.Kind {
	case model.KindSuggestionList:
		var b strings.Builder
		b.WriteString("Suggested resources:")
		for _, url := range u.URLs {
			b.WriteString("\n- ")
			b.WriteString(url)
		}
		return b.String()
	case model.KindActionWidget:
		return "Learning path generated: " + u.ArtifactID
	}
	return u.Text
}

// SetSuggestions replaces the pending suggestion list.
func (s *Session) SetSuggestions(urls []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append([]string(nil), urls...)
}

// Suggestions returns the pending suggestion list.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.suggestions...)
}

// RemoveSuggestion drops url from the pending list and reports whether it was there.
func (s *Session) RemoveSuggestion(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.suggestions {
		if u == url {
			s.suggestions = append(s.suggestions[:i:i], s.suggestions[i+1:]...)
			return true
		}
	}
	return false
}

// Context returns the session's retrieved-content store.
func (s *Session) Context() *contextstore.Store {
	return s.store
}

// SetScraped stores freshly retrieved text to show the model on the next completion.
func (s *Session) SetScraped(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scraped = text
}

// TakeScraped returns and clears the text stored by SetScraped.
func (s *Session) TakeScraped() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.scraped
	s.scraped = ""
	return out
}

// SetDraft parks plan parameters until the missing fields are supplied.
func (s *Session) SetDraft(params map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = make(map[string]string, len(params))
	for k, v := range params {
		s.draft[k] = v
	}
}

// TakeDraft returns and clears the parked plan parameters.
func (s *Session) TakeDraft() (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	s.draft = nil
	return d, d != nil
}

// Reset clears the conversation. It returns ErrBusy while a workflow runs.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("reset session %s: %w", s.ID, ErrBusy)
	}
	s.utterances = nil
	s.nextSeq = 1
	s.suggestions = nil
	s.scraped = ""
	s.draft = nil
	s.store.Reset()
	return nil
}
