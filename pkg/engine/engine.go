// Package engine advances a compiled dialogue graph exactly one turn per
// inbound message. The engine is stateless between calls: suspension and
// continuation live entirely in the conversation state, so a turn can be
// resumed by any process holding the same compiled graph.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/observability"
	"github.com/arbory/colloquy/pkg/state"
)

// defaultMaxSteps bounds node executions within one walk. A well-formed
// definition never comes close; the ceiling turns a definition cycle into a
// diagnosable error instead of a hang.
const defaultMaxSteps = 64

// Engine runs turns. Safe for concurrent use across sessions; callers must
// serialize turns within one session (previous output feeds the next input).
type Engine struct {
	logger   *slog.Logger
	maxSteps int
	now      func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxSteps overrides the per-turn node execution ceiling.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithTimeFunc overrides the clock for deterministic tests.
func WithTimeFunc(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSteps: defaultMaxSteps,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn executes one full graph walk and returns the next state. The input
// state is never mutated. inbound may be empty (e.g. the very first turn of
// a session). The returned state is re-validated against the structural
// contract; a violation is the caller's to see, never silently repaired.
func (e *Engine) RunTurn(ctx context.Context, g *graph.CompiledGraph, s *state.State, inbound string) (*state.State, error) {
	cur := s

	if inbound != "" {
		var err error
		cur, err = state.Merge(cur, state.Patch{
			state.ChannelMessages: state.AppendMessages(cur, state.Message{
				Role:    state.RoleUser,
				Content: inbound,
				SentAt:  e.now(),
			}),
		})
		if err != nil {
			return nil, err
		}
	}

	nodeID := g.Entry
	for steps := 0; ; steps++ {
		if steps >= e.maxSteps {
			observability.ObserveTurn(g.ID, "error")
			return nil, fmt.Errorf("turn aborted: %d node executions without suspension (cycle in graph %q?)", e.maxSteps, g.ID)
		}
		node, ok := g.Nodes[nodeID]
		if !ok {
			observability.ObserveTurn(g.ID, "error")
			return nil, fmt.Errorf("walk reached undeclared node %q", nodeID)
		}

		patch, err := node.Handler(ctx, g.Env, cur)
		if err != nil {
			observability.ObserveTurn(g.ID, "error")
			return nil, fmt.Errorf("node %q: %w", nodeID, err)
		}
		cur, err = state.Merge(cur, patch)
		if err != nil {
			observability.ObserveTurn(g.ID, "error")
			return nil, fmt.Errorf("node %q: %w", nodeID, err)
		}
		e.logger.Debug("node executed", "graph", g.ID, "node", nodeID)

		next, done := e.follow(g, node, cur)
		if done {
			break
		}
		nodeID = next
	}

	// Record where the walk stopped; routers and front doors use this to
	// resume and to report progress.
	cur, err := state.Merge(cur, state.Patch{
		state.ChannelSessionContext: map[string]any{state.KeyLastCompleted: nodeID},
	})
	if err != nil {
		return nil, err
	}

	cur, err = e.finishTurn(ctx, g, cur)
	if err != nil {
		observability.ObserveTurn(g.ID, "error")
		return nil, err
	}

	if err := state.Validate(cur); err != nil {
		observability.ObserveTurn(g.ID, "contract_violation")
		return nil, err
	}

	observability.ObserveTurn(g.ID, "ok")
	return cur, nil
}

// follow evaluates a node's outgoing edge. done is true at a suspension
// point: no edge, the terminal marker, or an unmatched router key. An
// unmatched key is a data-dependent condition, not a wiring error; this
// runtime's documented policy is to end the turn.
func (e *Engine) follow(g *graph.CompiledGraph, node *graph.CompiledNode, s *state.State) (next string, done bool) {
	if node.Router != nil {
		key := node.Router(s)
		dest, ok := node.Destinations[key]
		if !ok {
			e.logger.Debug("router key unmatched, ending turn",
				"graph", g.ID, "node", node.ID, "router", node.RouterRef, "key", key)
			return "", true
		}
		if dest == graph.Terminal {
			return "", true
		}
		return dest, false
	}
	if node.Static != "" && node.Static != graph.Terminal {
		return node.Static, false
	}
	return "", true
}
