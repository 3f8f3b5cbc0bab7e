package engine

import (
	"context"

	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/state"
)

// finishTurn applies the outbound-text post-pass to the newest agent
// message: external review for reviewable kinds, then the acknowledgement
// prefix when the prior turn went through a clarification sub-flow. Review
// failures fall back to the unreviewed text with a trace marker; they never
// abort the turn.
func (e *Engine) finishTurn(ctx context.Context, g *graph.CompiledGraph, s *state.State) (*state.State, error) {
	if len(s.Messages) == 0 {
		return s, nil
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != state.RoleAgent {
		return s, nil
	}

	cfg := g.Env.Config
	content := last.Content
	sc := map[string]any{}

	if cfg.Reviewable(last.Kind) && g.Env.Review != nil {
		reviewed, err := g.Env.Review.Review(ctx, content, cfg.MessagePolicy)
		if err != nil || reviewed == "" {
			e.logger.Warn("text review failed, keeping original", "graph", g.ID, "kind", last.Kind, "err", err)
			for k, v := range state.AppendTrace(s, "review:"+last.Kind+":failed") {
				sc[k] = v
			}
		} else {
			content = reviewed
		}
	}

	if pending, _ := s.SessionContext[state.KeyAckPending].(bool); pending && last.Kind != state.KindClarifier {
		if phrase := cfg.AckPhrase(); phrase != "" {
			content = phrase + " " + content
		}
		sc[state.KeyAckPending] = false
	}

	if content == last.Content && len(sc) == 0 {
		return s, nil
	}

	msgs := append([]state.Message(nil), s.Messages...)
	msgs[len(msgs)-1].Content = content

	patch := state.Patch{state.ChannelMessages: msgs}
	if len(sc) > 0 {
		patch[state.ChannelSessionContext] = sc
	}
	return state.Merge(s, patch)
}
