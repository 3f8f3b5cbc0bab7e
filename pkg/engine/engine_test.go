package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbory/colloquy/pkg/engine"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/state"
)

func say(kind, text string) graph.Handler {
	return func(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
		return state.Patch{
			state.ChannelMessages: state.AppendMessages(s, state.Message{
				Role: state.RoleAgent, Content: text, Kind: kind,
			}),
		}, nil
	}
}

func noop(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	return state.Patch{}, nil
}

func testGraph(cfg *graph.Behavior, nodes ...*graph.CompiledNode) *graph.CompiledGraph {
	if cfg == nil {
		cfg = &graph.Behavior{}
	}
	g := &graph.CompiledGraph{
		ID:    "test",
		Entry: nodes[0].ID,
		Nodes: map[string]*graph.CompiledNode{},
		Env:   &graph.Env{Config: cfg},
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
	}
	return g
}

func TestRunTurn_AppendsInboundAndSuspends(t *testing.T) {
	g := testGraph(nil,
		&graph.CompiledNode{ID: "greet", Handler: say(state.KindQuestion, "what's your goal?")},
	)

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "hello")
	require.NoError(t, err)

	require.Len(t, next.Messages, 2)
	assert.Equal(t, state.RoleUser, next.Messages[0].Role)
	assert.Equal(t, "hello", next.Messages[0].Content)
	assert.Equal(t, state.RoleAgent, next.Messages[1].Role)
}

func TestRunTurn_EmptyInboundAddsNoUserMessage(t *testing.T) {
	g := testGraph(nil, &graph.CompiledNode{ID: "greet", Handler: say(state.KindQuestion, "hi")})

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, state.RoleAgent, next.Messages[0].Role)
}

func TestRunTurn_StaticChainOrderAndTerminal(t *testing.T) {
	g := testGraph(nil,
		&graph.CompiledNode{ID: "a", Handler: say("", "first"), Static: "b"},
		&graph.CompiledNode{ID: "b", Handler: say("", "second"), Static: graph.Terminal},
	)

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	require.Len(t, next.Messages, 2)
	assert.Equal(t, "first", next.Messages[0].Content)
	assert.Equal(t, "second", next.Messages[1].Content)
}

func TestRunTurn_RouterSelectsDestination(t *testing.T) {
	g := testGraph(nil,
		&graph.CompiledNode{
			ID: "route", Handler: noop,
			Router:       func(s *state.State) string { return "left" },
			Destinations: map[string]string{"left": "l", "right": "r"},
		},
		&graph.CompiledNode{ID: "l", Handler: say("", "went left")},
		&graph.CompiledNode{ID: "r", Handler: say("", "went right")},
	)

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, "went left", next.Messages[0].Content)
}

func TestRunTurn_UnmatchedRouterKeyEndsTurn(t *testing.T) {
	g := testGraph(nil,
		&graph.CompiledNode{
			ID: "route", Handler: say("", "routed"),
			Router:       func(s *state.State) string { return "nowhere" },
			Destinations: map[string]string{"left": "l"},
		},
		&graph.CompiledNode{ID: "l", Handler: say("", "never")},
	)

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	require.Len(t, next.Messages, 1, "unmatched key must end the turn, not fail")
}

func TestRunTurn_CycleGuard(t *testing.T) {
	g := testGraph(nil,
		&graph.CompiledNode{ID: "a", Handler: noop, Static: "b"},
		&graph.CompiledNode{ID: "b", Handler: noop, Static: "a"},
	)

	_, err := engine.New(engine.WithMaxSteps(10)).RunTurn(context.Background(), g, state.New("s1"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestRunTurn_RecordsLastCompletedNode(t *testing.T) {
	g := testGraph(nil,
		&graph.CompiledNode{ID: "a", Handler: noop, Static: "b"},
		&graph.CompiledNode{ID: "b", Handler: say(state.KindQuestion, "hi")},
	)

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	assert.Equal(t, "b", next.SessionContext[state.KeyLastCompleted])
}

func TestRunTurn_InputStateNotMutated(t *testing.T) {
	g := testGraph(nil, &graph.CompiledNode{ID: "greet", Handler: say("", "hi")})
	s := state.New("s1")

	_, err := engine.New().RunTurn(context.Background(), g, s, "hello")
	require.NoError(t, err)
	assert.Empty(t, s.Messages, "RunTurn must not mutate its input state")
}

func TestRunTurn_OutputRevalidates(t *testing.T) {
	g := testGraph(nil, &graph.CompiledNode{ID: "greet", Handler: say(state.KindQuestion, "hi")})

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	assert.NoError(t, state.Validate(next))
}

func TestRunTurn_ContractViolationSurfaces(t *testing.T) {
	broken := func(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
		return state.Patch{
			state.ChannelSessionContext: map[string]any{state.KeyTrace: 42},
		}, nil
	}
	g := testGraph(nil, &graph.CompiledNode{ID: "bad", Handler: broken})

	_, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.Error(t, err)
	var cv *state.ContractViolation
	assert.True(t, errors.As(err, &cv))
}
