// Package graph defines the executable contracts shared by the compiler and
// the turn engine: handler and router signatures, the compiled graph, and
// the behavior configuration bound into it.
package graph

import (
	"context"
	"log/slog"

	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/state"
)

// Terminal is the reserved edge endpoint that ends a turn.
const Terminal = "__end__"

// Handler executes one node's work. It receives the compile-time environment
// and the current state, and returns a channel-wise patch. Handlers must
// catch collaborator failures internally and degrade to fallbacks; a
// returned error is treated as an implementer bug and aborts the turn.
type Handler func(ctx context.Context, env *Env, s *state.State) (state.Patch, error)

// Router maps state to a string key selecting among next nodes. Routers are
// pure: no I/O, no mutation.
type Router func(s *state.State) string

// ConfigProvider is the legacy behavior-config initializer, invoked at
// compile time only when the definition carries no inline config payload.
type ConfigProvider func() (map[string]any, error)

// ExampleGenerator produces state-dependent suggested replies.
type ExampleGenerator func(s *state.State) []string

// PrefixMapper maps a message kind to an overlay prefix for outbound text.
type PrefixMapper func(kind string) string

// Env is the environment bound into a compiled graph: behavior config plus
// collaborator handles. It is immutable after compile and safely shared
// across concurrent turns.
type Env struct {
	Config    *Behavior
	Gen       ports.TextGenerationClient
	Retrieval ports.RetrievalService
	Review    ports.TextReviewService
	Logger    *slog.Logger
}

// CompiledGraph is the executable form of a workflow definition: one handler
// per node id, one edge per node, built once and reused across all turns and
// sessions.
type CompiledGraph struct {
	ID      string
	Version string
	Entry   string
	Nodes   map[string]*CompiledNode
	Env     *Env
}

// CompiledNode binds a node to its handler and outgoing edge. A node has at
// most one edge: either a static target or a router with a destinations map.
type CompiledNode struct {
	ID   string
	Kind string

	Handler Handler

	// Static is the unconditional next node id (possibly Terminal), or ""
	// when the node has a conditional edge or no edge at all.
	Static string

	// Router and Destinations form the conditional edge. RouterRef keeps the
	// registry key for diagnostics.
	Router       Router
	RouterRef    string
	Destinations map[string]string
}

// HasEdge reports whether the node has any outgoing edge.
func (n *CompiledNode) HasEdge() bool {
	return n.Static != "" || n.Router != nil
}
