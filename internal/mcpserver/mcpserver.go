// Package mcpserver exposes the planning workflows as MCP tools.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/metalagman/pathwise/internal/model"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Orchestrator runs workflows for a session.
type Orchestrator interface {
	Submit(ctx context.Context, sess *session.Session, text string) (<-chan model.Event, error)
	AddToContext(ctx context.Context, sess *session.Session, url string) (<-chan model.Event, error)
}

// Server wraps an MCP server bound to a session registry.
type Server struct {
	orch     Orchestrator
	sessions *session.Manager
	mcp      *mcp.Server
}

// SubmitInput is the submit_utterance argument.
type SubmitInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"existing session id; a new session is created when empty"`
	Text      string `json:"text" jsonschema:"the user's message"`
}

// AddContextInput is the add_context argument.
type AddContextInput struct {
	SessionID string `json:"session_id" jsonschema:"session to add the page to"`
	URL       string `json:"url" jsonschema:"page or site root to crawl into context"`
}

// ResetInput is the reset_session argument.
type ResetInput struct {
	SessionID string `json:"session_id" jsonschema:"session to reset"`
}

// EventView is an event flattened for tool output.
type EventView struct {
	Type       string   `json:"type"`
	Origin     string   `json:"origin,omitempty"`
	Text       string   `json:"text,omitempty"`
	URLs       []string `json:"urls,omitempty"`
	ArtifactID string   `json:"artifact_id,omitempty"`
	Message    string   `json:"message,omitempty"`
	JobID      string   `json:"job_id,omitempty"`
	Progress   string   `json:"progress,omitempty"`
	IsError    bool     `json:"is_error,omitempty"`
}

// RunOutput is returned by tools that run a workflow.
type RunOutput struct {
	SessionID string      `json:"session_id"`
	Events    []EventView `json:"events"`
}

// ResetOutput is returned by reset_session.
type ResetOutput struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
}

// New registers the pathwise tools on a fresh MCP server.
func New(orch Orchestrator, sessions *session.Manager, version string) *Server {
	s := &Server{
		orch:     orch,
		sessions: sessions,
		mcp:      mcp.NewServer(&mcp.Implementation{Name: "pathwise", Version: version}, nil),
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "submit_utterance",
		Description: "Send a message to the learning-path planner and return the resulting events.",
	}, s.submit)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add_context",
		Description: "Crawl a URL into the session context, reusing cached content when available.",
	}, s.addContext)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reset_session",
		Description: "Clear the conversation, suggestions and context of a session.",
	}, s.reset)
	return s
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.mcp
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Msg("mcp server listening on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) submit(ctx context.Context, _ *mcp.CallToolRequest, in SubmitInput) (*mcp.CallToolResult, RunOutput, error) {
	sess, err := s.session(in.SessionID, true)
	if err != nil {
		return nil, RunOutput{}, err
	}
	events, err := s.orch.Submit(ctx, sess, in.Text)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("submit utterance: %w", err)
	}
	return nil, RunOutput{SessionID: sess.ID, Events: collect(events)}, nil
}

func (s *Server) addContext(ctx context.Context, _ *mcp.CallToolRequest, in AddContextInput) (*mcp.CallToolResult, RunOutput, error) {
	sess, err := s.session(in.SessionID, false)
	if err != nil {
		return nil, RunOutput{}, err
	}
	events, err := s.orch.AddToContext(ctx, sess, in.URL)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("add context: %w", err)
	}
	return nil, RunOutput{SessionID: sess.ID, Events: collect(events)}, nil
}

func (s *Server) reset(_ context.Context, _ *mcp.CallToolRequest, in ResetInput) (*mcp.CallToolResult, ResetOutput, error) {
	sess, err := s.session(in.SessionID, false)
	if err != nil {
		return nil, ResetOutput{}, err
	}
	if err := sess.Reset(); err != nil {
		return nil, ResetOutput{}, err
	}
	return nil, ResetOutput{SessionID: sess.ID, Reset: true}, nil
}

func (s *Server) session(id string, create bool) (*session.Session, error) {
	if id == "" && create {
		return s.sessions.Create(), nil
	}
	return s.sessions.Get(id)
}

func collect(events <-chan model.Event) []EventView {
	out := []EventView{}
	for ev := range events {
		v := EventView{
			Type:       string(ev.Type),
			URLs:       ev.URLs,
			ArtifactID: ev.ArtifactID,
			Message:    ev.Message,
			JobID:      ev.JobID,
			Progress:   ev.Progress,
		}
		if u := ev.Utterance; u != nil {
			v.Origin = string(u.Origin)
			v.Text = u.Text
			v.IsError = u.IsError
			if len(u.URLs) > 0 {
				v.URLs = u.URLs
			}
			if u.ArtifactID != "" {
				v.ArtifactID = u.ArtifactID
			}
		}
		out = append(out, v)
	}
	return out
}
