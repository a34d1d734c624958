package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/metalagman/pathwise/internal/model"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedOrchestrator struct {
	submitted []string
	added     []string
}

func (s *scriptedOrchestrator) Submit(_ context.Context, sess *session.Session, text string) (<-chan model.Event, error) {
	s.submitted = append(s.submitted, text)
	sess.SetSuggestions([]string{"https://docs.example.com/intro", "https://docs.example.com/api"})
	u := sess.Append(model.Utterance{Origin: model.OriginAssistant, Kind: model.KindSuggestionList, URLs: sess.Suggestions()})
	ch := make(chan model.Event, 2)
	ch <- model.Event{Type: model.EventUtteranceAdded, Utterance: &u}
	ch <- model.Event{Type: model.EventSuggestionsAvailable, URLs: u.URLs}
	close(ch)
	return ch, nil
}

func (s *scriptedOrchestrator) AddToContext(_ context.Context, sess *session.Session, url string) (<-chan model.Event, error) {
	s.added = append(s.added, url)
	u := sess.Append(model.Utterance{Origin: model.OriginNotice, Text: "Added " + url + " to context."})
	ch := make(chan model.Event, 1)
	ch <- model.Event{Type: model.EventUtteranceAdded, Utterance: &u}
	close(ch)
	return ch, nil
}

func TestChat_RunsCommands(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	orch := &scriptedOrchestrator{}
	c := &chat{orch: orch, sess: session.New("s1"), out: newPrinter(&out, 0)}

	in := strings.NewReader("learn go\n/add 2\n/add 9\n/add https://go.dev\n/reset\n/quit\nignored\n")
	require.NoError(t, c.run(context.Background(), in))

	assert.Equal(t, []string{"learn go"}, orch.submitted)
	assert.Equal(t, []string{"https://docs.example.com/api", "https://go.dev"}, orch.added)
	text := out.String()
	assert.Contains(t, text, "2. https://docs.example.com/api")
	assert.Contains(t, text, "no suggestion #9")
	assert.Contains(t, text, "Conversation reset.")
	assert.Empty(t, c.sess.Utterances())
}

func TestResolveTarget(t *testing.T) {
	t.Parallel()

	got, err := resolveTarget("1", []string{"https://a.example"})
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", got)

	got, err = resolveTarget("https://b.example", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example", got)

	_, err = resolveTarget("", nil)
	assert.Error(t, err)
	_, err = resolveTarget("0", []string{"https://a.example"})
	assert.Error(t, err)
}

func TestPrinter_PlainReplyAndCitations(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newPrinter(&out, 0)
	p.utterance(model.Utterance{
		Origin:    model.OriginAssistant,
		Text:      "Postgres 17 shipped.",
		Citations: []model.Citation{{URL: "https://postgresql.org/news", Title: "News"}},
	})
	p.utterance(model.Utterance{Origin: model.OriginNotice, Text: "boom", IsError: true})

	assert.Contains(t, out.String(), "Postgres 17 shipped.")
	assert.Contains(t, out.String(), "[News] https://postgresql.org/news")
	assert.Contains(t, out.String(), "boom")
}
