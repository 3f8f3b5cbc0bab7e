// Package resilience provides the reusable execution patterns handlers
// compose to talk to non-deterministic collaborators: an answer-capture
// loop, cascading source resolution, and AI-assisted selection with a
// deterministic fallback.
//
// Every primitive is an idempotent pure transformation from state to a
// channel patch. Collaborator failures never escape a primitive: each
// degrades to a documented fallback and records an append-only trace marker
// naming the branch taken, so stalls stay distinguishable from successes.
package resilience

import (
	"context"
	"strings"

	"github.com/arbory/colloquy/pkg/observability"
	"github.com/arbory/colloquy/pkg/state"
)

// Question is one entry of a numbered question list.
type Question struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// LoopResponse records one captured answer plus the per-answer hook output.
type LoopResponse struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Aux      map[string]any `json:"aux,omitempty"`
}

// AnswerHook runs once per accepted answer (e.g. a risk assessment). Hook
// failures degrade to a trace marker; the answer is kept regardless.
type AnswerHook func(ctx context.Context, question, answer string) (map[string]any, error)

// LoopParams configures an answer-capture loop.
type LoopParams struct {
	// Name is the accumulator key and trace-marker prefix for this loop.
	Name string

	Questions []Question

	// QuestionKey is the last_question_key value while the loop awaits input.
	QuestionKey string

	Intro        string // emitted before the first question, optional
	Closing      string // emitted after the last answer, optional
	EmptyMessage string // emitted when Questions is empty

	Hook AnswerHook // optional
}

// loopState is the loop's accumulator payload.
type loopState struct {
	Index     int            `json:"index"`
	Responses []LoopResponse `json:"responses"`
}

// AnswerCaptureLoop drives a numbered question list one answer per turn.
//
// Not awaiting: emits the intro and first question and suspends. Awaiting:
// sanitizes the latest inbound message; a blank answer re-emits the same
// question without advancing, a real answer is stored (with hook output) and
// the next question goes out, until the list is exhausted. Zero available
// questions is its own terminal branch and never enters the loop body.
func AnswerCaptureLoop(ctx context.Context, s *state.State, p LoopParams) (state.Patch, error) {
	if len(p.Questions) == 0 {
		msgs := state.AppendMessages(s, agentMsg(state.KindConfirmation, p.EmptyMessage))
		sc := state.AppendTrace(s, p.Name+":empty")
		sc[state.KeyAwaitingUser] = false
		sc[state.KeyLastQuestion] = nil
		return state.Patch{
			state.ChannelMessages:       msgs,
			state.ChannelSessionContext: sc,
		}, nil
	}

	awaiting := s.AwaitingUser() && s.LastQuestionKey() == p.QuestionKey
	if !awaiting {
		return startLoop(s, p), nil
	}
	return resumeLoop(ctx, s, p), nil
}

func startLoop(s *state.State, p LoopParams) state.Patch {
	var out []state.Message
	if p.Intro != "" {
		out = append(out, agentMsg(state.KindConfirmation, p.Intro))
	}
	out = append(out, agentMsg(state.KindQuestion, p.Questions[0].Text))

	sc := state.AppendTrace(s, p.Name+":start")
	sc[state.KeyAwaitingUser] = true
	sc[state.KeyLastQuestion] = p.QuestionKey

	return state.Patch{
		state.ChannelMessages:       state.AppendMessages(s, out...),
		state.ChannelSessionContext: sc,
		state.ChannelAccumulators:   state.SetAccumulator(s, p.Name, loopState{}),
	}
}

func resumeLoop(ctx context.Context, s *state.State, p LoopParams) state.Patch {
	ls := readLoopState(s, p.Name)
	if ls.Index >= len(p.Questions) {
		// Stale index from an edited definition; restart rather than crash.
		return startLoop(s, p)
	}
	current := p.Questions[ls.Index]

	answer := strings.TrimSpace(s.LastUserMessage())
	if answer == "" {
		// Blank answer: re-emit the same question, do not advance.
		return state.Patch{
			state.ChannelMessages: state.AppendMessages(s, agentMsg(state.KindQuestion, current.Text)),
		}
	}

	var markers []string
	var aux map[string]any
	if p.Hook != nil {
		out, err := p.Hook(ctx, current.Text, answer)
		if err != nil {
			markers = append(markers, p.Name+":hook:"+current.Key+":failed")
			observability.ObserveFallback("answer_capture_loop")
		} else {
			aux = out
		}
	}

	ls.Responses = append(ls.Responses, LoopResponse{
		Question: current.Text,
		Answer:   answer,
		Aux:      aux,
	})

	var out []state.Message
	sc := map[string]any{}
	if ls.Index+1 < len(p.Questions) {
		ls.Index++
		out = append(out, agentMsg(state.KindQuestion, p.Questions[ls.Index].Text))
		sc[state.KeyAwaitingUser] = true
		sc[state.KeyLastQuestion] = p.QuestionKey
	} else {
		if p.Closing != "" {
			out = append(out, agentMsg(state.KindConfirmation, p.Closing))
		}
		ls.Index = 0
		sc[state.KeyAwaitingUser] = false
		sc[state.KeyLastQuestion] = nil
		markers = append(markers, p.Name+":complete")
	}
	for k, v := range state.AppendTrace(s, markers...) {
		sc[k] = v
	}

	return state.Patch{
		state.ChannelMessages:       state.AppendMessages(s, out...),
		state.ChannelSessionContext: sc,
		state.ChannelAccumulators:   state.SetAccumulator(s, p.Name, ls),
	}
}

// readLoopState tolerates both the in-process struct and the generic maps a
// JSON round-trip through a store produces.
func readLoopState(s *state.State, name string) loopState {
	switch v := s.Accumulators[name].(type) {
	case loopState:
		return v
	case map[string]any:
		ls := loopState{}
		switch idx := v["index"].(type) {
		case int:
			ls.Index = idx
		case float64:
			ls.Index = int(idx)
		}
		if raw, ok := v["responses"].([]any); ok {
			for _, e := range raw {
				if m, ok := e.(map[string]any); ok {
					r := LoopResponse{}
					r.Question, _ = m["question"].(string)
					r.Answer, _ = m["answer"].(string)
					r.Aux, _ = m["aux"].(map[string]any)
					ls.Responses = append(ls.Responses, r)
				}
			}
		}
		return ls
	default:
		return loopState{}
	}
}

// Responses returns the answers a loop has captured so far.
func Responses(s *state.State, name string) []LoopResponse {
	return readLoopState(s, name).Responses
}

func agentMsg(kind, content string) state.Message {
	return state.Message{Role: state.RoleAgent, Content: content, Kind: kind}
}
