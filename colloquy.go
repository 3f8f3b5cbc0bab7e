package colloquy

import (
	"context"
	"log/slog"

	"github.com/arbory/colloquy/pkg/compiler"
	"github.com/arbory/colloquy/pkg/definition"
	"github.com/arbory/colloquy/pkg/engine"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/registry"
	"github.com/arbory/colloquy/pkg/state"
)

// Version of the colloquy library.
const Version = "0.1.0"

// Runtime is the high-level entry point for library consumers: a compiled
// graph plus a turn engine, ready to run sessions.
type Runtime struct {
	Graph *graph.CompiledGraph

	engine       *engine.Engine
	registry     *registry.Context
	logger       *slog.Logger
	maxSteps     int
	compilerOpts []compiler.Option
}

// Option configures the Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger for compilation and turn execution.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
		r.compilerOpts = append(r.compilerOpts, compiler.WithLogger(l))
	}
}

// WithRegistry compiles against a custom registry context instead of the
// package-level default.
func WithRegistry(rc *registry.Context) Option {
	return func(r *Runtime) {
		r.registry = rc
	}
}

// WithMaxSteps bounds the node executions per turn.
func WithMaxSteps(n int) Option {
	return func(r *Runtime) {
		r.maxSteps = n
	}
}

// WithTextGeneration injects the text generation collaborator.
func WithTextGeneration(c ports.TextGenerationClient) Option {
	return func(r *Runtime) {
		r.compilerOpts = append(r.compilerOpts, compiler.WithTextGeneration(c))
	}
}

// WithRetrieval injects the retrieval collaborator.
func WithRetrieval(c ports.RetrievalService) Option {
	return func(r *Runtime) {
		r.compilerOpts = append(r.compilerOpts, compiler.WithRetrieval(c))
	}
}

// WithReview injects the text review collaborator.
func WithReview(c ports.TextReviewService) Option {
	return func(r *Runtime) {
		r.compilerOpts = append(r.compilerOpts, compiler.WithReview(c))
	}
}

// New parses and compiles a workflow definition document.
// References resolve against the default registry unless WithRegistry is
// given; register flow modules before calling New.
func New(doc []byte, opts ...Option) (*Runtime, error) {
	def, err := definition.Parse(doc)
	if err != nil {
		return nil, err
	}
	return NewFromDefinition(def, opts...)
}

// NewFromDefinition compiles an already-parsed definition.
func NewFromDefinition(def *definition.WorkflowDefinition, opts ...Option) (*Runtime, error) {
	r := &Runtime{registry: registry.Default()}
	for _, opt := range opts {
		opt(r)
	}

	g, err := compiler.Compile(def, r.registry, r.compilerOpts...)
	if err != nil {
		return nil, err
	}
	r.Graph = g

	engineOpts := []engine.Option{}
	if r.logger != nil {
		engineOpts = append(engineOpts, engine.WithLogger(r.logger))
	}
	if r.maxSteps > 0 {
		engineOpts = append(engineOpts, engine.WithMaxSteps(r.maxSteps))
	}
	r.engine = engine.New(engineOpts...)

	return r, nil
}

// NewSession creates a fresh conversation state.
func (r *Runtime) NewSession(sessionID string) *state.State {
	return state.New(sessionID)
}

// RunTurn executes one turn and returns the successor state. The input
// state is never mutated.
func (r *Runtime) RunTurn(ctx context.Context, s *state.State, inbound string) (*state.State, error) {
	return r.engine.RunTurn(ctx, r.Graph, s, inbound)
}

// Engine exposes the underlying turn engine for adapters that manage their
// own graphs.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}
