package intake_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbory/colloquy/pkg/compiler"
	"github.com/arbory/colloquy/pkg/engine"
	"github.com/arbory/colloquy/pkg/flows/intake"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/registry"
	"github.com/arbory/colloquy/pkg/state"
)

type fakeGen struct {
	reply string
	err   error
}

func (f *fakeGen) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeRetrieval struct {
	rows []ports.RetrievalRow
	err  error
}

func (f *fakeRetrieval) Search(ctx context.Context, q, tenant string, docTypes []string, filter map[string]any, topK int) ([]ports.RetrievalRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func compileFlow(t *testing.T, opts ...compiler.Option) *graph.CompiledGraph {
	t.Helper()
	rc := registry.NewContext()
	intake.Register(rc)

	def, err := intake.Load()
	require.NoError(t, err)

	g, err := compiler.Compile(def, rc, opts...)
	require.NoError(t, err)
	return g
}

func turn(t *testing.T, g *graph.CompiledGraph, s *state.State, inbound string) *state.State {
	t.Helper()
	next, err := engine.New().RunTurn(context.Background(), g, s, inbound)
	require.NoError(t, err)
	return next
}

func lastAgent(s *state.State) state.Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == state.RoleAgent {
			return s.Messages[i]
		}
	}
	return state.Message{}
}

func TestFirstTurn_AsksFocusQuestion(t *testing.T) {
	g := compileFlow(t)
	s := turn(t, g, state.New("sess-1"), "")

	assert.True(t, s.AwaitingUser())
	assert.Equal(t, intake.QKeyFocusArea, s.LastQuestionKey())

	last := lastAgent(s)
	assert.Equal(t, state.KindQuestion, last.Kind)
	assert.Contains(t, last.Content, "1. Shipping a new feature")
}

func TestValidSelection_AdvancesToPriority(t *testing.T) {
	g := compileFlow(t)
	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1")

	assert.Equal(t, "Shipping a new feature", s.Accumulators[intake.AccFocusArea])
	assert.True(t, s.HasTrace("focus:selected"))

	// No collaborators: both cascade sources fail, the whole universe is
	// committed and the priority question goes out in the same turn.
	assert.True(t, s.HasTrace("topics:fallback"))
	assert.True(t, s.AwaitingUser())
	assert.Equal(t, intake.QKeyTopicPriority, s.LastQuestionKey())
	assert.Contains(t, lastAgent(s).Content, "1. scope")
}

func TestOutOfRangeSelection_RetriesWithoutAdvancing(t *testing.T) {
	g := compileFlow(t)
	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1")

	s = turn(t, g, s, "9")
	firstRetry := lastAgent(s)

	assert.NotContains(t, s.Accumulators, intake.AccTopicPriority, "out-of-range reply must not commit")
	assert.Equal(t, state.KindClarifier, firstRetry.Kind)
	used, _ := s.SessionContext[state.KeyClarifierUsed].(bool)
	assert.True(t, used, "step_clarifier_used must be set")
	assert.True(t, s.AwaitingUser(), "still waiting on the same question")
	assert.Equal(t, intake.QKeyTopicPriority, s.LastQuestionKey())

	// The retry prompt is identical across attempts.
	s = turn(t, g, s, "also not a number")
	assert.Equal(t, firstRetry.Content, lastAgent(s).Content)
}

func TestAckPrefix_AfterClarifierRecovery(t *testing.T) {
	g := compileFlow(t)
	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1")
	s = turn(t, g, s, "9") // clarifier
	s = turn(t, g, s, "2") // recovery

	assert.Equal(t, "staffing", s.Accumulators[intake.AccTopicPriority])

	// The newest agent message of the recovery turn carries the ack prefix,
	// and the pending flag is consumed.
	assert.True(t, strings.HasPrefix(lastAgent(s).Content, "Got it, thanks!"),
		"expected ack prefix on %q", lastAgent(s).Content)
	pending, _ := s.SessionContext[state.KeyAckPending].(bool)
	assert.False(t, pending)
}

func TestFullRun_WithCollaborators(t *testing.T) {
	gen := &fakeGen{reply: "kickoff-template"}
	retr := &fakeRetrieval{rows: []ports.RetrievalRow{
		{ID: "kickoff-template", Content: "for new projects", Score: 0.91},
		{ID: "retro-template", Content: "for retrospectives", Score: 0.77},
	}}
	g := compileFlow(t,
		compiler.WithTextGeneration(gen),
		compiler.WithRetrieval(retr),
	)

	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1") // focus
	s = turn(t, g, s, "2") // priority

	// Discovery loop: intro was emitted with the first question.
	assert.Equal(t, intake.QKeyDiscovery, s.LastQuestionKey())
	s = turn(t, g, s, "ship by Q3")
	s = turn(t, g, s, "review latency")
	s = turn(t, g, s, "end of September")

	assert.False(t, s.AwaitingUser())
	assert.True(t, s.HasTrace("discovery:complete"))

	// Next inbound advances past the loop into recommend + recap.
	s = turn(t, g, s, "ok")
	assert.Equal(t, "kickoff-template", s.Accumulators[intake.AccTemplate])
	assert.True(t, s.HasTrace("template:ai"))
	assert.Contains(t, s.RetrievalCache, "template_rows")
	assert.Equal(t, state.KindRecap, lastAgent(s).Kind)
	assert.Contains(t, lastAgent(s).Content, "kickoff-template")

	// And one more message reaches the farewell.
	s = turn(t, g, s, "thanks")
	assert.Equal(t, state.KindFarewell, lastAgent(s).Kind)
	completed, _ := s.SessionContext[state.KeyCompleted].(bool)
	assert.True(t, completed)

	// The engine's own output always re-validates.
	assert.NoError(t, state.Validate(s))
}

func TestRecommend_DegradesWithoutCollaborators(t *testing.T) {
	g := compileFlow(t)
	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1")
	s = turn(t, g, s, "1")
	s = turn(t, g, s, "a")
	s = turn(t, g, s, "b")
	s = turn(t, g, s, "c")
	s = turn(t, g, s, "ok")

	assert.Equal(t, "standard-intake", s.Accumulators[intake.AccTemplate])
	assert.True(t, s.HasTrace("template:retrieve-failed"))
}

func TestRecommend_SelectorErrorFallsBackToFirstCandidate(t *testing.T) {
	gen := &fakeGen{err: errors.New("model down")}
	retr := &fakeRetrieval{rows: []ports.RetrievalRow{
		{ID: "kickoff-template", Content: "x", Score: 0.9},
	}}
	g := compileFlow(t, compiler.WithTextGeneration(gen), compiler.WithRetrieval(retr))

	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1")
	s = turn(t, g, s, "1")
	s = turn(t, g, s, "a")
	s = turn(t, g, s, "b")
	s = turn(t, g, s, "c")
	s = turn(t, g, s, "ok")

	assert.Equal(t, "kickoff-template", s.Accumulators[intake.AccTemplate])
	assert.True(t, s.HasTrace("template:fallback"))
}

func TestBlankDiscoveryAnswer_RepeatsQuestion(t *testing.T) {
	g := compileFlow(t)
	s := turn(t, g, state.New("sess-1"), "")
	s = turn(t, g, s, "1")
	s = turn(t, g, s, "1")

	question := lastAgent(s).Content
	s = turn(t, g, s, "   ")
	assert.Equal(t, question, lastAgent(s).Content)
	assert.True(t, s.AwaitingUser())
}

func TestRegister_Idempotent(t *testing.T) {
	rc := registry.NewContext()
	intake.Register(rc)
	before := len(rc.List(registry.KindHandler))
	intake.Register(rc)
	assert.Equal(t, before, len(rc.List(registry.KindHandler)))
}
