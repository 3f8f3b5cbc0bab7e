package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/arbory/colloquy/pkg/state"
)

func fixed(items ...string) func(ctx context.Context, s *state.State) ([]string, error) {
	return func(ctx context.Context, s *state.State) ([]string, error) {
		return items, nil
	}
}

func failing(err error) func(ctx context.Context, s *state.State) ([]string, error) {
	return func(ctx context.Context, s *state.State) ([]string, error) {
		return nil, err
	}
}

func runCascade(t *testing.T, p CascadeParams) *state.State {
	t.Helper()
	s := state.New("s")
	patch, err := CascadingResolve(context.Background(), s, p)
	if err != nil {
		t.Fatalf("CascadingResolve() error = %v", err)
	}
	next, err := state.Merge(s, patch)
	if err != nil {
		t.Fatal(err)
	}
	return next
}

func selection(t *testing.T, s *state.State, key string) []string {
	t.Helper()
	sel, ok := s.Accumulators[key].([]string)
	if !ok {
		t.Fatalf("accumulator %q = %T, want []string", key, s.Accumulators[key])
	}
	return sel
}

func TestCascade_EmptyUniverse(t *testing.T) {
	s := runCascade(t, CascadeParams{
		Name:      "topics",
		CommitKey: "topics",
		Universe:  fixed(),
		Sources:   []CascadeSource{{Name: "profile", Fetch: fixed("a")}},
	})

	if got := selection(t, s, "topics"); len(got) != 0 {
		t.Errorf("selection = %v, want empty", got)
	}
	if !s.HasTrace("topics:empty") {
		t.Error("missing :empty marker")
	}
}

func TestCascade_UniverseFetchError(t *testing.T) {
	s := runCascade(t, CascadeParams{
		Name:      "topics",
		CommitKey: "topics",
		Universe:  failing(errors.New("store down")),
	})

	if got := selection(t, s, "topics"); len(got) != 0 {
		t.Errorf("selection = %v, want empty", got)
	}
	if !s.HasTrace("topics:empty") {
		t.Error("universe failure must fail soft with the :empty marker")
	}
}

func TestCascade_SecondSourceWins(t *testing.T) {
	s := runCascade(t, CascadeParams{
		Name:      "topics",
		CommitKey: "topics",
		Universe:  fixed("go", "sql", "infra"),
		Sources: []CascadeSource{
			{Name: "profile", Fetch: fixed("haskell", "prolog")}, // all filtered out
			{Name: "model", Fetch: fixed("sql", "cobol")},
		},
	})

	got := selection(t, s, "topics")
	if len(got) != 1 || got[0] != "sql" {
		t.Errorf("selection = %v, want [sql]", got)
	}
	if !s.HasTrace("topics:model") {
		t.Error("marker must name the source that succeeded (model)")
	}
	if s.HasTrace("topics:profile") {
		t.Error("filtered-out source must not be marked as a success")
	}
}

func TestCascade_SourceErrorSkipped(t *testing.T) {
	s := runCascade(t, CascadeParams{
		Name:      "topics",
		CommitKey: "topics",
		Universe:  fixed("go", "sql"),
		Sources: []CascadeSource{
			{Name: "profile", Fetch: failing(errors.New("boom"))},
			{Name: "model", Fetch: fixed("go")},
		},
	})

	got := selection(t, s, "topics")
	if len(got) != 1 || got[0] != "go" {
		t.Errorf("selection = %v, want [go]", got)
	}
	if !s.HasTrace("topics:model") {
		t.Error("marker should name the surviving source")
	}
}

func TestCascade_AllSourcesFailFallsBackToUniverse(t *testing.T) {
	s := runCascade(t, CascadeParams{
		Name:      "topics",
		CommitKey: "topics",
		Universe:  fixed("go", "sql"),
		Sources: []CascadeSource{
			{Name: "profile", Fetch: failing(errors.New("boom"))},
			{Name: "model", Fetch: fixed("out-of-universe")},
		},
	})

	got := selection(t, s, "topics")
	if len(got) != 2 {
		t.Errorf("selection = %v, want the whole universe", got)
	}
	if !s.HasTrace("topics:fallback") {
		t.Error("missing :fallback marker")
	}
}
