// Package httpapi exposes a compiled graph over HTTP: session lifecycle,
// one turn per message, and the UI metadata a thin client needs to render a
// conversation (step labels, suggested replies, message prefixes).
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbory/colloquy/pkg/engine"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/state"
)

// Server serves one compiled graph. Turns for the same session are
// serialized through the lock manager; different sessions run concurrently.
type Server struct {
	graph  *graph.CompiledGraph
	engine *engine.Engine
	store  ports.StateStore
	logger *slog.Logger
	locks  *lockManager
}

type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server for a compiled graph backed by the given store.
func New(g *graph.CompiledGraph, eng *engine.Engine, store ports.StateStore, opts ...Option) *Server {
	s := &Server{
		graph:  g,
		engine: eng,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		locks:  newLockManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/messages", s.postMessage)
		})
	})
	return r
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
}

type turnResponse struct {
	SessionID        string         `json:"session_id"`
	Messages         []messageView  `json:"messages"`
	AwaitingUser     bool           `json:"awaiting_user"`
	Completed        bool           `json:"completed"`
	StepLabel        string         `json:"step_label,omitempty"`
	SuggestedReplies []string       `json:"suggested_replies,omitempty"`
	Accumulators     map[string]any `json:"accumulators,omitempty"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createSession mints a session ID and runs the opening turn, so the
// response already carries the first question.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New().String()

	next, err := s.engine.RunTurn(r.Context(), s.graph, state.New(sessionID), "")
	if err != nil {
		s.logger.Error("opening turn failed", "session_id", sessionID, "err", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(r.Context(), sessionID, next); err != nil {
		s.logger.Error("save failed", "session_id", sessionID, "err", err)
		http.Error(w, "failed to persist session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, s.turnView(next, 0))
}

// postMessage runs one turn. The per-session lock makes concurrent posts to
// the same session take effect one after another.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	current, err := s.store.Load(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		s.logger.Error("load failed", "session_id", sessionID, "err", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	before := len(current.Messages)
	next, err := s.engine.RunTurn(r.Context(), s.graph, current, req.Content)
	if err != nil {
		s.logger.Error("turn failed", "session_id", sessionID, "err", err)
		http.Error(w, "turn failed", http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(r.Context(), sessionID, next); err != nil {
		s.logger.Error("save failed", "session_id", sessionID, "err", err)
		http.Error(w, "failed to persist session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, s.turnView(next, before))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	st, err := s.store.Load(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.turnView(st, 0))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.store.Delete(r.Context(), sessionID); err != nil {
		http.Error(w, "failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// turnView projects the messages from index `from` onward plus the UI
// metadata the behavior config declares.
func (s *Server) turnView(st *state.State, from int) turnResponse {
	cfg := s.graph.Env.Config

	resp := turnResponse{
		SessionID:    st.SessionID(),
		AwaitingUser: st.AwaitingUser(),
		Messages:     []messageView{},
		Accumulators: st.Accumulators,
	}
	if completed, ok := st.SessionContext[state.KeyCompleted].(bool); ok {
		resp.Completed = completed
	}

	for _, m := range st.Messages[from:] {
		view := messageView{Role: m.Role, Content: m.Content, Kind: m.Kind}
		if cfg != nil && cfg.OverlayPrefix != nil && m.Role == state.RoleAgent {
			view.Prefix = cfg.OverlayPrefix(m.Kind)
		}
		resp.Messages = append(resp.Messages, view)
	}

	if cfg != nil {
		if step, ok := st.SessionContext[state.KeyCurrentStep].(string); ok {
			resp.StepLabel = cfg.StepLabels[step]
		}
		if st.AwaitingUser() && cfg.ExampleGenerator != nil {
			resp.SuggestedReplies = cfg.ExampleGenerator(st)
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
