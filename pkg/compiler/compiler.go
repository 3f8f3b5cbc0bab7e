// Package compiler cross-checks a parsed workflow definition against a
// registry context and builds the executable graph. Compilation is
// all-or-nothing: the first unresolvable reference or invalid endpoint
// aborts the whole process, so a partially wired graph can never serve.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/arbory/colloquy/pkg/definition"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/observability"
	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/registry"
	"github.com/arbory/colloquy/pkg/state"
)

// Option configures collaborator handles bound into the compiled graph.
type Option func(*graph.Env)

// WithTextGeneration binds the language-model client.
func WithTextGeneration(c ports.TextGenerationClient) Option {
	return func(e *graph.Env) { e.Gen = c }
}

// WithRetrieval binds the similarity-search service.
func WithRetrieval(r ports.RetrievalService) Option {
	return func(e *graph.Env) { e.Retrieval = r }
}

// WithReview binds the outbound text-review service.
func WithReview(r ports.TextReviewService) Option {
	return func(e *graph.Env) { e.Review = r }
}

// WithLogger sets the structured logger handlers receive through the Env.
func WithLogger(l *slog.Logger) Option {
	return func(e *graph.Env) { e.Logger = l }
}

// Compile resolves every symbolic reference in the definition against the
// registry and returns the executable graph. Checks run in a fixed order:
// state contract, entry point, node handlers, conditional transitions,
// static transitions, then runtime configuration.
func Compile(def *definition.WorkflowDefinition, reg *registry.Context, opts ...Option) (*graph.CompiledGraph, error) {
	g, err := compile(def, reg, opts...)
	if err != nil {
		observability.ObserveCompileFailure(errorClass(err))
		return nil, err
	}
	return g, nil
}

func errorClass(err error) string {
	var uce *UnsupportedContractError
	var ure *registry.UnresolvedReferenceError
	switch {
	case errors.As(err, &uce):
		return "unsupported_contract"
	case errors.As(err, &ure):
		return "unresolved_reference"
	default:
		return "structure"
	}
}

func compile(def *definition.WorkflowDefinition, reg *registry.Context, opts ...Option) (*graph.CompiledGraph, error) {
	// 1. State contract must be one this runtime can validate.
	if !state.RecognizedContract(def.StateContract) {
		return nil, &UnsupportedContractError{Ref: def.StateContract}
	}

	// 2. Entry point must be a declared node.
	if def.NodeByID(def.EntryPoint) == nil {
		return nil, fmt.Errorf("entry point %q is not a declared node", def.EntryPoint)
	}

	nodes := make(map[string]*graph.CompiledNode, len(def.Nodes))

	// 3. Resolve every node's handler, fail fast with node+key context.
	for _, n := range def.Nodes {
		h, err := reg.ResolveHandler(n.Handler)
		if err != nil {
			return nil, withWhere(err, fmt.Sprintf("node %q", n.ID))
		}
		nodes[n.ID] = &graph.CompiledNode{
			ID:      n.ID,
			Kind:    n.Kind,
			Handler: h,
		}
	}

	// 4. Resolve conditional transitions: router plus every destination.
	for _, t := range def.Transitions.Conditional {
		src, ok := nodes[t.From]
		if !ok {
			return nil, fmt.Errorf("conditional transition from unknown node %q", t.From)
		}
		if src.HasEdge() {
			return nil, fmt.Errorf("node %q has more than one outgoing edge", t.From)
		}
		r, err := reg.ResolveRouter(t.Router)
		if err != nil {
			return nil, withWhere(err, fmt.Sprintf("conditional transition from %q", t.From))
		}
		for key, dest := range t.Destinations {
			if dest == definition.Terminal {
				continue
			}
			if _, ok := nodes[dest]; !ok {
				return nil, fmt.Errorf("conditional transition from %q: destination %q (key %q) is not a declared node or terminal", t.From, dest, key)
			}
		}
		src.Router = r
		src.RouterRef = t.Router
		src.Destinations = t.Destinations
	}

	// 5. Validate static transition endpoints.
	for _, t := range def.Transitions.Static {
		src, ok := nodes[t.From]
		if !ok {
			return nil, fmt.Errorf("static transition from unknown node %q", t.From)
		}
		if src.HasEdge() {
			return nil, fmt.Errorf("node %q has more than one outgoing edge", t.From)
		}
		if t.To != definition.Terminal {
			if _, ok := nodes[t.To]; !ok {
				return nil, fmt.Errorf("static transition %q -> %q: target is not a declared node or terminal", t.From, t.To)
			}
		}
		src.Static = t.To
	}

	// 6. Resolve runtime configuration.
	behavior, err := resolveConfig(def, reg)
	if err != nil {
		return nil, err
	}

	env := &graph.Env{
		Config: behavior,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(env)
	}

	return &graph.CompiledGraph{
		ID:      def.GraphID,
		Version: def.Version,
		Entry:   def.EntryPoint,
		Nodes:   nodes,
		Env:     env,
	}, nil
}

func withWhere(err error, where string) error {
	if ure, ok := err.(*registry.UnresolvedReferenceError); ok && ure.Where == "" {
		return &registry.UnresolvedReferenceError{Kind: ure.Kind, Key: ure.Key, Where: where}
	}
	return err
}
