// Package dispatch runs the directive workflows for a session and streams their events.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/metalagman/pathwise/internal/contextstore"
	"github.com/metalagman/pathwise/internal/job"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/metalagman/pathwise/internal/dispatch")

var (
	// ErrBusy is returned when a session already runs a workflow.
	ErrBusy = session.ErrBusy
	// ErrStateViolation marks an internal state machine defect.
	ErrStateViolation = session.ErrStateViolation
	// ErrEmptyInput is returned for blank utterances and URLs.
	ErrEmptyInput = errors.New("input is empty")
)

// Completer produces a reply for a history.
type Completer interface {
	Complete(ctx context.Context, history []model.Turn, useGrounding bool) (model.Completion, error)
}

// ResourceSearcher finds learning resources on a topic.
type ResourceSearcher interface {
	SearchResources(ctx context.Context, topic string) ([]string, error)
}

// ContentLookup reads the shared content cache. A miss or lookup error reports false.
type ContentLookup interface {
	LookupCachedContent(ctx context.Context, sourceID string) (model.RetrievedContext, bool)
}

// Crawler runs multi-page crawls with start/poll semantics.
type Crawler interface {
	StartCrawl(ctx context.Context, rootURL string, maxPages int) (string, error)
	CheckCrawlStatus(ctx context.Context, jobID string) (job.Status[[]model.Page], error)
}

// CurriculumGenerator produces a learning path and returns its artifact id.
type CurriculumGenerator interface {
	GenerateCurriculum(ctx context.Context, params map[string]string) (string, error)
}

// PromptBuilder renders the system frame for a completion.
type PromptBuilder interface {
	SystemFrame(contextBlock, scraped string) string
}

// CollaboratorError is a failure of an external capability, reported to the user as an error notice.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Deps are the collaborators a Dispatcher drives.
type Deps struct {
	Completer Completer
	Searcher  ResourceSearcher
	Lookup    ContentLookup
	Crawler   Crawler
	Generator CurriculumGenerator
	Prompts   PromptBuilder
}

// Config tunes the workflows.
type Config struct {
	// ContextBudget caps the rendered context block, in characters.
	ContextBudget int
	// MaxPages is passed to StartCrawl.
	MaxPages int
	// Poll drives crawl jobs.
	Poll job.Options
}

const defaultMaxPages = 10

// Dispatcher turns utterances into completions and completions into side effects.
type Dispatcher struct {
	deps Deps
	cfg  Config
	jobs *job.Registry
}

// New creates a dispatcher.
func New(deps Deps, cfg Config) *Dispatcher {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = contextstore.DefaultBudget
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Dispatcher{deps: deps, cfg: cfg, jobs: job.NewRegistry()}
}

// Jobs lists the ids of jobs currently in flight.
func (d *Dispatcher) Jobs() []string {
	return d.jobs.IDs()
}

// Submit records a user utterance and runs the workflow its reply asks for.
//
// The returned channel yields the events in order and is closed once the
// session is idle again. The caller must drain it or cancel ctx.
func (d *Dispatcher) Submit(ctx context.Context, sess *session.Session, text string) (<-chan model.Event, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := sess.Begin(session.StateAwaitingCompletion); err != nil {
		return nil, err
	}

	out := make(chan model.Event)
	go func() {
		defer close(out)
		ctx, span := tracer.Start(ctx, "dispatch.submit")
		defer span.End()
		span.SetAttributes(attribute.String("session.id", sess.ID))

		t := &turn{d: d, ctx: ctx, sess: sess, out: out}
		defer t.idle()
		defer t.recoverPanic("submit")
		t.submit(text)
	}()
	return out, nil
}

// AddToContext retrieves url into the session context, from cache when possible.
// Events are streamed like Submit.
func (d *Dispatcher) AddToContext(ctx context.Context, sess *session.Session, url string) (<-chan model.Event, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyInput
	}
	if err := sess.Begin(session.StateCrawling); err != nil {
		return nil, err
	}

	out := make(chan model.Event)
	go func() {
		defer close(out)
		ctx, span := tracer.Start(ctx, "dispatch.add_context")
		defer span.End()
		span.SetAttributes(attribute.String("session.id", sess.ID), attribute.String("url", url))

		t := &turn{d: d, ctx: ctx, sess: sess, out: out}
		defer t.idle()
		defer t.recoverPanic("add context")
		t.addToContext(url)
	}()
	return out, nil
}

// turn carries one workflow run.
type turn struct {
	d    *Dispatcher
	ctx  context.Context
	sess *session.Session
	out  chan<- model.Event
}

func (t *turn) send(ev model.Event) {
	select {
	case t.out <- ev:
	case <-t.ctx.Done():
	}
}

func (t *turn) say(u model.Utterance) {
	u = t.sess.Append(u)
	t.send(model.Event{Type: model.EventUtteranceAdded, Utterance: &u})
}

func (t *turn) notice(text string) {
	t.say(model.Utterance{Origin: model.OriginNotice, Kind: model.KindText, Text: text})
}

// fail reports a collaborator failure as one error notice followed by an error event.
func (t *turn) fail(op, message string, err error) {
	cerr := &CollaboratorError{Op: op, Err: err}
	log.Warn().Err(cerr).Str("session", t.sess.ID).Msg("workflow failed")
	text := message + ": " + err.Error()
	t.say(model.Utterance{Origin: model.OriginNotice, Kind: model.KindText, Text: text, IsError: true})
	t.send(model.Event{Type: model.EventError, Message: text})
}

// recoverPanic reports a panic raised inside the workflow as a collaborator failure.
// It must be deferred directly.
func (t *turn) recoverPanic(op string) {
	r := recover()
	if r == nil {
		return
	}
	log.Error().Str("session", t.sess.ID).Str("op", op).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("workflow panicked")
	t.fail(op, "Something went wrong", fmt.Errorf("panic: %v", r))
}

func (t *turn) transition(to session.State) bool {
	if err := t.sess.Transition(to); err != nil {
		log.Error().Err(err).Str("session", t.sess.ID).Msg("dispatch state violation")
		return false
	}
	return true
}

// idle returns the session to Idle. Every workflow ends here.
func (t *turn) idle() {
	if t.sess.State() == session.StateIdle {
		return
	}
	if err := t.sess.Transition(session.StateIdle); err != nil {
		log.Error().Err(err).Str("session", t.sess.ID).Msg("dispatch state violation")
	}
}
