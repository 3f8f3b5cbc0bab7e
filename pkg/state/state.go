// Package state defines the conversation state shared by every turn of a
// compiled dialogue graph: a channel-partitioned payload where each channel
// carries its own reducer rule, plus the structural contract the engine
// re-validates after every turn.
package state

import (
	"time"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Well-known message kinds. Handlers may introduce their own; these are the
// ones the engine and the reference flow care about.
const (
	KindQuestion     = "question"
	KindConfirmation = "confirmation"
	KindClarifier    = "clarifier"
	KindRecap        = "recap"
	KindFarewell     = "farewell"
)

// Message is a single entry in the conversation log.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Kind    string    `json:"kind,omitempty"`
	SentAt  time.Time `json:"sent_at,omitempty"`
}

// Session context keys used by the engine and routers. The keys form a small
// closed vocabulary; everything else in session_context is free-form.
const (
	KeySessionID      = "session_id"
	KeyAwaitingUser   = "awaiting_user"
	KeyLastCompleted  = "last_completed_node"
	KeyLastQuestion   = "last_question_key"
	KeyTrace          = "trace"
	KeyAckPending     = "ack_pending"
	KeyClarifierUsed  = "step_clarifier_used"
	KeyCompleted      = "completed"
	KeyCurrentStep    = "current_step"
)

// State is the full conversation snapshot. It is never mutated in place: a
// turn produces a brand-new value via Merge, and the caller persists it.
type State struct {
	Messages       []Message      `json:"messages"`
	SessionContext map[string]any `json:"session_context"`
	Profile        map[string]any `json:"profile"`
	Accumulators   map[string]any `json:"accumulators"`
	RetrievalCache map[string]any `json:"retrieval_cache"`
}

// New creates a fresh state for a session. The result satisfies the
// conversation/v1 contract without any further merges.
func New(sessionID string) *State {
	return &State{
		Messages: []Message{},
		SessionContext: map[string]any{
			KeySessionID:    sessionID,
			KeyAwaitingUser: false,
			KeyTrace:        []string{},
		},
		Profile:        map[string]any{},
		Accumulators:   map[string]any{},
		RetrievalCache: map[string]any{},
	}
}

// SessionID returns the session identifier, or "" if unset.
func (s *State) SessionID() string {
	id, _ := s.SessionContext[KeySessionID].(string)
	return id
}

// AwaitingUser reports whether the graph suspended waiting for input.
func (s *State) AwaitingUser() bool {
	b, _ := s.SessionContext[KeyAwaitingUser].(bool)
	return b
}

// LastQuestionKey returns the key of the last question asked, or "".
func (s *State) LastQuestionKey() string {
	k, _ := s.SessionContext[KeyLastQuestion].(string)
	return k
}

// Trace returns the append-only guardrail trace. The returned slice is a
// copy; use AppendTrace on a patch to record new markers.
func (s *State) Trace() []string {
	return append([]string(nil), traceOf(s.SessionContext)...)
}

// HasTrace reports whether a marker was recorded at any point.
func (s *State) HasTrace(marker string) bool {
	for _, m := range traceOf(s.SessionContext) {
		if m == marker {
			return true
		}
	}
	return false
}

// LastUserMessage returns the newest user message content, or "".
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// traceOf tolerates both []string (in-process) and []any (after a JSON
// round-trip through a store).
func traceOf(sc map[string]any) []string {
	switch v := sc[KeyTrace].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep-enough copy: channel containers are fresh, leaf
// values are shared (treated as immutable by convention).
func (s *State) Clone() *State {
	return &State{
		Messages:       append([]Message(nil), s.Messages...),
		SessionContext: cloneMap(s.SessionContext),
		Profile:        cloneMap(s.Profile),
		Accumulators:   cloneMap(s.Accumulators),
		RetrievalCache: cloneMap(s.RetrievalCache),
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
