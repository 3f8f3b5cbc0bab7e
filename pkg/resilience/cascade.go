package resilience

import (
	"context"

	"github.com/arbory/colloquy/pkg/observability"
	"github.com/arbory/colloquy/pkg/state"
)

// CascadeSource is one ordered candidate source for CascadingResolve.
type CascadeSource struct {
	Name  string
	Fetch func(ctx context.Context, s *state.State) ([]string, error)
}

// CascadeParams configures a cascading resolve.
type CascadeParams struct {
	// Name is the trace-marker prefix.
	Name string
	// CommitKey is the accumulator key the selection is committed under.
	CommitKey string

	// Universe fetches the allowed set every source is filtered against.
	Universe func(ctx context.Context, s *state.State) ([]string, error)

	Sources []CascadeSource
}

// CascadingResolve tries ordered sources and falls back to the known-good
// universe. It never fails: an empty or unfetchable universe commits an
// empty selection with a ":empty" marker; the first source whose results
// survive filtering wins a per-source marker; if every source fails or
// filters to nothing, the whole universe is committed under a ":fallback"
// marker. Forward progress never stalls, but stalls stay visible in the
// trace.
func CascadingResolve(ctx context.Context, s *state.State, p CascadeParams) (state.Patch, error) {
	universe, err := p.Universe(ctx, s)
	if err != nil || len(universe) == 0 {
		observability.ObserveFallback("cascading_resolve")
		return commitCascade(s, p, []string{}, p.Name+":empty"), nil
	}

	allowed := make(map[string]bool, len(universe))
	for _, u := range universe {
		allowed[u] = true
	}

	for _, src := range p.Sources {
		results, err := src.Fetch(ctx, s)
		if err != nil {
			continue
		}
		var filtered []string
		for _, r := range results {
			if allowed[r] {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) > 0 {
			return commitCascade(s, p, filtered, p.Name+":"+src.Name), nil
		}
	}

	observability.ObserveFallback("cascading_resolve")
	return commitCascade(s, p, universe, p.Name+":fallback"), nil
}

func commitCascade(s *state.State, p CascadeParams, selection []string, marker string) state.Patch {
	return state.Patch{
		state.ChannelAccumulators:   state.SetAccumulator(s, p.CommitKey, selection),
		state.ChannelSessionContext: state.AppendTrace(s, marker),
	}
}
