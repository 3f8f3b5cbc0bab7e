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

type fakeReviewer struct {
	out string
	err error
}

func (f *fakeReviewer) Review(ctx context.Context, text, policy string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func TestFinishTurn_ReviewRewritesReviewableKind(t *testing.T) {
	g := testGraph(
		&graph.Behavior{ReviewKinds: []string{state.KindRecap}, MessagePolicy: "brand"},
		&graph.CompiledNode{ID: "recap", Handler: say(state.KindRecap, "raw recap")},
	)
	g.Env.Review = &fakeReviewer{out: "polished recap"}

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	assert.Equal(t, "polished recap", next.Messages[0].Content)
}

func TestFinishTurn_ReviewFailureKeepsOriginalWithMarker(t *testing.T) {
	g := testGraph(
		&graph.Behavior{ReviewKinds: []string{state.KindRecap}},
		&graph.CompiledNode{ID: "recap", Handler: say(state.KindRecap, "raw recap")},
	)
	g.Env.Review = &fakeReviewer{err: errors.New("review down")}

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err, "review failure must never abort a turn")
	assert.Equal(t, "raw recap", next.Messages[0].Content)
	assert.True(t, next.HasTrace("review:recap:failed"))
}

func TestFinishTurn_NonReviewableKindSkipsReview(t *testing.T) {
	g := testGraph(
		&graph.Behavior{ReviewKinds: []string{state.KindRecap}},
		&graph.CompiledNode{ID: "ask", Handler: say(state.KindQuestion, "a question")},
	)
	g.Env.Review = &fakeReviewer{out: "should not appear"}

	next, err := engine.New().RunTurn(context.Background(), g, state.New("s1"), "")
	require.NoError(t, err)
	assert.Equal(t, "a question", next.Messages[0].Content)
}

func TestFinishTurn_AckPrefixAfterClarifier(t *testing.T) {
	g := testGraph(
		&graph.Behavior{AckPhrases: []string{"Got it, thanks!"}},
		&graph.CompiledNode{ID: "ask", Handler: say(state.KindQuestion, "next question")},
	)
	s := state.New("s1")
	s.SessionContext[state.KeyAckPending] = true

	next, err := engine.New().RunTurn(context.Background(), g, s, "my answer")
	require.NoError(t, err)

	last := next.Messages[len(next.Messages)-1]
	assert.Equal(t, "Got it, thanks! next question", last.Content)
	pending, _ := next.SessionContext[state.KeyAckPending].(bool)
	assert.False(t, pending, "ack flag must clear once consumed")
}

func TestFinishTurn_ClarifierKeepsAckPending(t *testing.T) {
	g := testGraph(
		&graph.Behavior{AckPhrases: []string{"Got it!"}},
		&graph.CompiledNode{ID: "retry", Handler: say(state.KindClarifier, "please pick a number")},
	)
	s := state.New("s1")
	s.SessionContext[state.KeyAckPending] = true

	next, err := engine.New().RunTurn(context.Background(), g, s, "blurb")
	require.NoError(t, err)

	last := next.Messages[len(next.Messages)-1]
	assert.Equal(t, "please pick a number", last.Content, "clarifier is never ack-prefixed")
	pending, _ := next.SessionContext[state.KeyAckPending].(bool)
	assert.True(t, pending, "ack stays pending through a re-emitted clarifier")
}
