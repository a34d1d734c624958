// Package model defines the conversation types shared by the orchestrator and its collaborators.
package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Origin identifies who produced an utterance.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
	OriginNotice    Origin = "system-notice"
)

// Kind describes the display payload of an utterance.
type Kind string

const (
	KindText           Kind = "text"
	KindMarkdown       Kind = "markdown"
	KindSuggestionList Kind = "suggestion-list"
	KindActionWidget   Kind = "action-widget"
)

// Citation is a source attached to a grounded reply.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Utterance is one turn of conversation. It is immutable once appended to a session.
type Utterance struct {
	Seq        int        `json:"seq"`
	Origin     Origin     `json:"origin"`
	Kind       Kind       `json:"kind"`
	Text       string     `json:"text,omitempty"`
	URLs       []string   `json:"urls,omitempty"`
	ArtifactID string     `json:"artifact_id,omitempty"`
	Citations  []Citation `json:"citations,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Clone returns a deep copy of the utterance.
func (u Utterance) Clone() Utterance {
	out := u
	if u.URLs != nil {
		out.URLs = append([]string(nil), u.URLs...)
	}
	if u.Citations != nil {
		out.Citations = append([]Citation(nil), u.Citations...)
	}
	return out
}

// Role is the speaker of a completion turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the history sent to the completion collaborator.
type Turn struct {
	Role    Role
	Content string
}

// Completion is the collaborator reply for a history.
type Completion struct {
	Text      string
	Citations []Citation
}

// RetrievedContext is a cached unit of external content keyed by its canonical URL.
type RetrievedContext struct {
	SourceID    string    `json:"source_id"`
	Body        string    `json:"body"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// CanonicalSourceID returns the key content is cached under: the URL trimmed and
// without its fragment. Text that does not parse as a URL is only trimmed.
func CanonicalSourceID(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment, u.RawFragment = "", ""
	return u.String()
}

// Page is a single page produced by a crawl.
type Page struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// JoinPages concatenates crawled pages into one body, tagging each with its own URL and title.
func JoinPages(pages []Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = p.SourceURL
		}
		fmt.Fprintf(&b, "## %s\nURL: %s\n\n%s", title, p.SourceURL, strings.TrimSpace(p.Body))
	}
	return b.String()
}

// Collaborator failure classes. Implementations wrap one of these so callers can classify with errors.Is.
var (
	ErrCompletion = errors.New("completion failed")
	ErrSearch     = errors.New("resource search failed")
	ErrCrawl      = errors.New("crawl failed")
	ErrGeneration = errors.New("curriculum generation failed")
)
