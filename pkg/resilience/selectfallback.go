package resilience

import (
	"context"

	"github.com/arbory/colloquy/pkg/observability"
	"github.com/arbory/colloquy/pkg/state"
)

// SelectParams configures a retrieve-select-fallback resolution.
type SelectParams struct {
	// Name is the trace-marker prefix.
	Name string
	// CommitKey is the accumulator key the choice is committed under.
	CommitKey string

	// Retrieve produces the candidate set plus free-form context for the
	// selector (e.g. the retrieved passages).
	Retrieve func(ctx context.Context, s *state.State) (candidates []string, queryContext string, err error)

	// Select asks the AI-assisted selector to pick among the candidates.
	// Its opinion is advisory only.
	Select func(ctx context.Context, candidates []string, queryContext string) (string, error)

	// Fallback is the deterministic safety net. Called with the candidate
	// set, or nil when retrieval produced nothing.
	Fallback func(candidates []string) string

	// RequireMember rejects a selector pick outside the candidate set.
	RequireMember bool
}

// RetrieveSelectFallback resolves a choice with an AI assist and a
// deterministic safety net. Retrieval and selection failures never
// propagate: every degraded branch commits the fallback value and records a
// marker naming what happened.
func RetrieveSelectFallback(ctx context.Context, s *state.State, p SelectParams) (state.Patch, error) {
	candidates, queryCtx, err := p.Retrieve(ctx, s)
	if err != nil {
		observability.ObserveFallback("retrieve_select_fallback")
		return commitChoice(s, p, p.Fallback(nil), p.Name+":retrieve-failed"), nil
	}
	if len(candidates) == 0 {
		observability.ObserveFallback("retrieve_select_fallback")
		return commitChoice(s, p, p.Fallback(nil), p.Name+":empty"), nil
	}

	choice, err := p.Select(ctx, candidates, queryCtx)
	if err != nil || choice == "" || (p.RequireMember && !member(choice, candidates)) {
		observability.ObserveFallback("retrieve_select_fallback")
		return commitChoice(s, p, p.Fallback(candidates), p.Name+":fallback"), nil
	}

	return commitChoice(s, p, choice, p.Name+":ai"), nil
}

func member(v string, set []string) bool {
	for _, e := range set {
		if e == v {
			return true
		}
	}
	return false
}

func commitChoice(s *state.State, p SelectParams, choice, marker string) state.Patch {
	return state.Patch{
		state.ChannelAccumulators:   state.SetAccumulator(s, p.CommitKey, choice),
		state.ChannelSessionContext: state.AppendTrace(s, marker),
	}
}
