package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/resilience"
	"github.com/arbory/colloquy/pkg/state"
)

func handleNoop(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	return state.Patch{}, nil
}

func handleWelcome(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	question := cfg.Prompt("focus_question") + "\n\n" + numberedList(cfg.FocusAreas)

	msgs := []state.Message{
		{Role: state.RoleAgent, Content: cfg.Prompt("welcome"), Kind: state.KindConfirmation},
		{Role: state.RoleAgent, Content: question, Kind: state.KindQuestion},
	}
	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, msgs...),
		state.ChannelSessionContext: map[string]any{
			state.KeyAwaitingUser: true,
			state.KeyLastQuestion: QKeyFocusArea,
			state.KeyCurrentStep:  "focus",
		},
	}, nil
}

func handleIngestFocus(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	idx, ok := parseSelection(s.LastUserMessage(), cfg.FocusAreas)
	if !ok {
		retry := cfg.ClarifierRetryText + "\n\n" + numberedList(cfg.FocusAreas)
		return clarifierPatch(s, retry), nil
	}

	area := cfg.FocusAreas[idx]
	sc := state.AppendTrace(s, markerFocusSelected)
	sc[state.KeyAwaitingUser] = false
	sc[state.KeyLastQuestion] = nil
	sc[state.KeyCurrentStep] = "priority"

	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, state.Message{
			Role:    state.RoleAgent,
			Content: fmt.Sprintf("%s — nice. Let's narrow that down.", area),
			Kind:    state.KindConfirmation,
		}),
		state.ChannelSessionContext: sc,
		state.ChannelAccumulators:   state.SetAccumulator(s, AccFocusArea, area),
	}, nil
}

// handlePlanTopics resolves the topic short-list: profile interests first,
// then model suggestions, each filtered against the configured universe,
// falling back to the whole universe.
func handlePlanTopics(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	return resilience.CascadingResolve(ctx, s, resilience.CascadeParams{
		Name:      AccTopics,
		CommitKey: AccTopics,
		Universe: func(ctx context.Context, s *state.State) ([]string, error) {
			return cfg.TopicUniverse, nil
		},
		Sources: []resilience.CascadeSource{
			{Name: "profile", Fetch: profileInterests},
			{Name: "model", Fetch: modelSuggestedTopics(env)},
		},
	})
}

func profileInterests(ctx context.Context, s *state.State) ([]string, error) {
	return stringList(s.Profile["interests"]), nil
}

func modelSuggestedTopics(env *graph.Env) func(ctx context.Context, s *state.State) ([]string, error) {
	return func(ctx context.Context, s *state.State) ([]string, error) {
		if env.Gen == nil {
			return nil, fmt.Errorf("no text generation client configured")
		}
		focus := str(s.Accumulators[AccFocusArea])
		out, err := env.Gen.Invoke(ctx, env.Config.Prompt("suggest_system"), focus)
		if err != nil {
			return nil, err
		}
		var topics []string
		for _, part := range strings.Split(out, ",") {
			if t := strings.ToLower(strings.TrimSpace(part)); t != "" {
				topics = append(topics, t)
			}
		}
		return topics, nil
	}
}

func handleAskPriority(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	topics := stringList(s.Accumulators[AccTopics])

	if len(topics) == 0 {
		// Nothing to prioritize; default and move on next turn.
		sc := state.AppendTrace(s, markerPriorityDefaulted)
		sc[state.KeyAwaitingUser] = false
		sc[state.KeyCurrentStep] = "discovery"
		return state.Patch{
			state.ChannelMessages: state.AppendMessages(s, state.Message{
				Role:    state.RoleAgent,
				Content: "No specific topics stood out, so we'll keep this general.",
				Kind:    state.KindConfirmation,
			}),
			state.ChannelSessionContext: sc,
			state.ChannelAccumulators:   state.SetAccumulator(s, AccTopicPriority, "general"),
		}, nil
	}

	question := cfg.Prompt("priority_question") + "\n\n" + numberedList(topics)
	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, state.Message{
			Role: state.RoleAgent, Content: question, Kind: state.KindQuestion,
		}),
		state.ChannelSessionContext: map[string]any{
			state.KeyAwaitingUser: true,
			state.KeyLastQuestion: QKeyTopicPriority,
		},
	}, nil
}

func handleIngestPriority(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	topics := stringList(s.Accumulators[AccTopics])
	idx, ok := parseSelection(s.LastUserMessage(), topics)
	if !ok {
		retry := cfg.ClarifierRetryText + "\n\n" + numberedList(topics)
		return clarifierPatch(s, retry), nil
	}

	sc := map[string]any{
		state.KeyAwaitingUser: false,
		state.KeyLastQuestion: nil,
		state.KeyCurrentStep:  "discovery",
	}
	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, state.Message{
			Role:    state.RoleAgent,
			Content: fmt.Sprintf("We'll start with %s.", topics[idx]),
			Kind:    state.KindConfirmation,
		}),
		state.ChannelSessionContext: sc,
		state.ChannelAccumulators:   state.SetAccumulator(s, AccTopicPriority, topics[idx]),
	}, nil
}

func handleDiscoveryLoop(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	questions := make([]resilience.Question, 0, len(cfg.Questions))
	for _, q := range cfg.Questions {
		questions = append(questions, resilience.Question{Key: q.Key, Text: q.Text})
	}

	params := resilience.LoopParams{
		Name:         AccDiscovery,
		Questions:    questions,
		QuestionKey:  QKeyDiscovery,
		Intro:        cfg.Prompt("discovery_intro"),
		Closing:      cfg.Prompt("discovery_closing"),
		EmptyMessage: cfg.Prompt("discovery_empty"),
	}
	if env.Gen != nil {
		params.Hook = riskHook(env)
	}
	return resilience.AnswerCaptureLoop(ctx, s, params)
}

// riskHook asks the model for a one-word risk call on each answer. Failures
// degrade inside the loop; the answer is kept either way.
func riskHook(env *graph.Env) resilience.AnswerHook {
	return func(ctx context.Context, question, answer string) (map[string]any, error) {
		out, err := env.Gen.Invoke(ctx, env.Config.Prompt("risk_system"), question+"\n"+answer)
		if err != nil {
			return nil, err
		}
		return map[string]any{"risk": strings.ToLower(strings.TrimSpace(out))}, nil
	}
}

func handleRecommend(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	cfg := env.Config
	var cachedRows []map[string]any

	patch, err := resilience.RetrieveSelectFallback(ctx, s, resilience.SelectParams{
		Name:      AccTemplate,
		CommitKey: AccTemplate,
		Retrieve: func(ctx context.Context, s *state.State) ([]string, string, error) {
			if env.Retrieval == nil {
				return nil, "", fmt.Errorf("no retrieval service configured")
			}
			query := str(s.Accumulators[AccFocusArea]) + " " + strings.Join(stringList(s.Accumulators[AccTopics]), " ")
			rows, err := env.Retrieval.Search(ctx, query, defaultTenant, []string{"template"}, nil, 5)
			if err != nil {
				return nil, "", err
			}
			candidates := make([]string, 0, len(rows))
			var contexts []string
			for _, r := range rows {
				candidates = append(candidates, r.ID)
				contexts = append(contexts, r.ID+": "+r.Content)
				cachedRows = append(cachedRows, map[string]any{
					"id": r.ID, "content": r.Content, "score": r.Score,
				})
			}
			return candidates, strings.Join(contexts, "\n"), nil
		},
		Select: func(ctx context.Context, candidates []string, queryContext string) (string, error) {
			if env.Gen == nil {
				return "", fmt.Errorf("no text generation client configured")
			}
			user := "Candidates:\n" + strings.Join(candidates, "\n") + "\n\nContext:\n" + queryContext
			out, err := env.Gen.Invoke(ctx, cfg.Prompt("select_system"), user)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(out), nil
		},
		Fallback: func(candidates []string) string {
			if len(candidates) > 0 {
				return candidates[0]
			}
			return "standard-intake"
		},
		RequireMember: true,
	})
	if err != nil {
		return nil, err
	}

	if len(cachedRows) > 0 {
		cache := cloneAnyMap(s.RetrievalCache)
		cache["template_rows"] = cachedRows
		patch[state.ChannelRetrievalCache] = cache
	}
	return patch, nil
}

func handleRecap(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	responses := resilience.Responses(s, AccDiscovery)

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what we've got:\n")
	fmt.Fprintf(&b, "- Focus: %s\n", str(s.Accumulators[AccFocusArea]))
	fmt.Fprintf(&b, "- First topic: %s\n", str(s.Accumulators[AccTopicPriority]))
	if topics := stringList(s.Accumulators[AccTopics]); len(topics) > 0 {
		fmt.Fprintf(&b, "- On the table: %s\n", strings.Join(topics, ", "))
	}
	fmt.Fprintf(&b, "- Discovery answers: %d\n", len(responses))
	fmt.Fprintf(&b, "- Suggested template: %s", str(s.Accumulators[AccTemplate]))

	sc := state.AppendTrace(s, markerRecapDone)
	sc[state.KeyAwaitingUser] = false
	sc[state.KeyCurrentStep] = "recap"

	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, state.Message{
			Role: state.RoleAgent, Content: b.String(), Kind: state.KindRecap,
		}),
		state.ChannelSessionContext: sc,
	}, nil
}

func handleFarewell(ctx context.Context, env *graph.Env, s *state.State) (state.Patch, error) {
	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, state.Message{
			Role:    state.RoleAgent,
			Content: "That's a wrap — good luck with it, and come back any time.",
			Kind:    state.KindFarewell,
		}),
		state.ChannelSessionContext: map[string]any{
			state.KeyAwaitingUser: false,
			state.KeyCompleted:    true,
		},
	}, nil
}

// clarifierPatch re-emits a retry prompt without advancing: the awaiting
// flag and last question key stay as they are, the clarifier markers are
// set, and the acknowledgement is armed for the eventual successful answer.
func clarifierPatch(s *state.State, retry string) state.Patch {
	return state.Patch{
		state.ChannelMessages: state.AppendMessages(s, state.Message{
			Role: state.RoleAgent, Content: retry, Kind: state.KindClarifier,
		}),
		state.ChannelSessionContext: map[string]any{
			state.KeyClarifierUsed: true,
			state.KeyAckPending:    true,
		},
	}
}

// parseSelection maps a user reply onto a numbered option list, accepting
// either the number or the option text.
func parseSelection(input string, options []string) (int, bool) {
	input = strings.TrimSpace(input)
	if input == "" || len(options) == 0 {
		return 0, false
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}
	for i, opt := range options {
		if strings.EqualFold(input, opt) {
			return i, true
		}
	}
	return 0, false
}

func numberedList(options []string) string {
	var b strings.Builder
	for i, opt := range options {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, opt)
	}
	return b.String()
}

// stringList tolerates []string and the []any a JSON round-trip produces.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func cloneAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
