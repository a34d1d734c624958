package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/metalagman/pathwise/internal/dispatch"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch     Orchestrator
	sessions *session.Manager
}

type sessionView struct {
	ID             string            `json:"id"`
	State          session.State     `json:"state"`
	CreatedAt      time.Time         `json:"created_at"`
	Utterances     []model.Utterance `json:"utterances"`
	Suggestions    []string          `json:"suggestions"`
	ContextSources []string          `json:"context_sources"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) createSession(w http.ResponseWriter, _ *http.Request) {
	sess := h.sessions.Create()
	respondJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sessionView{
		ID:             sess.ID,
		State:          sess.State(),
		CreatedAt:      sess.CreatedAt,
		Utterances:     sess.Utterances(),
		Suggestions:    sess.Suggestions(),
		ContextSources: sess.Context().Sources(),
	})
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) resetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	events, err := h.orch.Submit(r.Context(), sess, req.Text)
	if err != nil {
		respondErr(w, err)
		return
	}
	stream(w, events)
}

func (h *handlers) postContext(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	events, err := h.orch.AddToContext(r.Context(), sess, req.URL)
	if err != nil {
		respondErr(w, err)
		return
	}
	stream(w, events)
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErr(w, err)
		return nil, false
	}
	return sess, true
}

// stream writes events as Server-Sent Events until the channel closes.
// The channel is always drained so the workflow can finish.
func stream(w http.ResponseWriter, events <-chan model.Event) {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	broken := false
	for ev := range events {
		if broken {
			continue
		}
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Msg("encode event")
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			broken = true
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dispatch.ErrEmptyInput):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
