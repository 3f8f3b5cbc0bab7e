package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/state"
)

func noopHandler(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	return state.Patch{}, nil
}

func TestRegisterResolve(t *testing.T) {
	c := NewContext()
	c.RegisterHandler("demo.noop", noopHandler)

	h, err := c.ResolveHandler("demo.noop")
	if err != nil {
		t.Fatalf("ResolveHandler() error = %v", err)
	}
	if h == nil {
		t.Fatal("ResolveHandler() returned nil handler")
	}
}

func TestResolve_Missing(t *testing.T) {
	c := NewContext()

	_, err := c.ResolveRouter("ghost")
	if err == nil {
		t.Fatal("ResolveRouter() should fail for missing key")
	}
	var ure *UnresolvedReferenceError
	if !errors.As(err, &ure) {
		t.Fatalf("error should be *UnresolvedReferenceError, got %T", err)
	}
	if ure.Kind != KindRouter || ure.Key != "ghost" {
		t.Errorf("error = %v, want router/ghost", ure)
	}
}

func TestModule_Idempotent(t *testing.T) {
	c := NewContext()
	calls := 0

	register := func(rc *Context) {
		calls++
		rc.RegisterHandler("demo.noop", noopHandler)
		rc.RegisterRouter("demo.route", func(s *state.State) string { return "next" })
	}

	c.Module("demo", register)
	c.Module("demo", register)

	if calls != 1 {
		t.Errorf("module body ran %d times, want 1", calls)
	}
	if got := len(c.List(KindHandler)); got != 1 {
		t.Errorf("handler count = %d, want 1", got)
	}
	if got := len(c.List(KindRouter)); got != 1 {
		t.Errorf("router count = %d, want 1", got)
	}
}

func TestReregister_KeyCountStable(t *testing.T) {
	c := NewContext()
	c.RegisterHandler("demo.noop", noopHandler)
	c.RegisterHandler("demo.noop", noopHandler)

	if got := len(c.List(KindHandler)); got != 1 {
		t.Errorf("key count after double registration = %d, want 1", got)
	}
}

func TestReset(t *testing.T) {
	c := NewContext()
	c.Module("demo", func(rc *Context) {
		rc.RegisterHandler("demo.noop", noopHandler)
	})
	c.Reset()

	if got := len(c.List(KindHandler)); got != 0 {
		t.Errorf("key count after reset = %d, want 0", got)
	}

	// Module guard is cleared too: registration runs again.
	ran := false
	c.Module("demo", func(rc *Context) { ran = true })
	if !ran {
		t.Error("module guard should reset with the entries")
	}
}

func TestList_Sorted(t *testing.T) {
	c := NewContext()
	c.RegisterRouter("b", func(s *state.State) string { return "" })
	c.RegisterRouter("a", func(s *state.State) string { return "" })

	keys := c.List(KindRouter)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("List() = %v, want [a b]", keys)
	}
}
