package state

import "fmt"

// Channel names partitioning the conversation state.
type Channel string

const (
	ChannelMessages       Channel = "messages"
	ChannelSessionContext Channel = "session_context"
	ChannelProfile        Channel = "profile"
	ChannelAccumulators   Channel = "accumulators"
	ChannelRetrievalCache Channel = "retrieval_cache"
)

// Reducer is the merge strategy for a channel.
type Reducer int

const (
	// ReducerReplace swaps the channel value wholesale.
	ReducerReplace Reducer = iota
	// ReducerShallowMerge merges top-level keys, patch keys winning.
	ReducerShallowMerge
)

// channelReducers is the schema table: every channel and its strategy.
// Only session_context is shallow-merged; everything else is replaced.
var channelReducers = map[Channel]Reducer{
	ChannelMessages:       ReducerReplace,
	ChannelSessionContext: ReducerShallowMerge,
	ChannelProfile:        ReducerReplace,
	ChannelAccumulators:   ReducerReplace,
	ChannelRetrievalCache: ReducerReplace,
}

// Patch is a partial update produced by a handler: a subset of channels with
// their new values. Messages take []Message; map channels take
// map[string]any.
type Patch map[Channel]any

// Merge applies a patch to a state and returns a new state. The input is
// never mutated. Unknown channels or mistyped channel values are an error
// (a handler bug, surfaced loudly).
func Merge(s *State, p Patch) (*State, error) {
	next := s.Clone()
	for ch, val := range p {
		reducer, ok := channelReducers[ch]
		if !ok {
			return nil, fmt.Errorf("merge: unknown channel %q", ch)
		}
		switch ch {
		case ChannelMessages:
			msgs, ok := val.([]Message)
			if !ok {
				return nil, fmt.Errorf("merge: channel %q expects []Message, got %T", ch, val)
			}
			next.Messages = append([]Message(nil), msgs...)
		default:
			m, ok := val.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("merge: channel %q expects map[string]any, got %T", ch, val)
			}
			target := next.channelMap(ch)
			if reducer == ReducerReplace {
				next.setChannelMap(ch, cloneMap(m))
				continue
			}
			merged := cloneMap(target)
			for k, v := range m {
				merged[k] = v
			}
			next.setChannelMap(ch, merged)
		}
	}
	return next, nil
}

func (s *State) channelMap(ch Channel) map[string]any {
	switch ch {
	case ChannelSessionContext:
		return s.SessionContext
	case ChannelProfile:
		return s.Profile
	case ChannelAccumulators:
		return s.Accumulators
	case ChannelRetrievalCache:
		return s.RetrievalCache
	}
	return nil
}

func (s *State) setChannelMap(ch Channel, m map[string]any) {
	switch ch {
	case ChannelSessionContext:
		s.SessionContext = m
	case ChannelProfile:
		s.Profile = m
	case ChannelAccumulators:
		s.Accumulators = m
	case ChannelRetrievalCache:
		s.RetrievalCache = m
	}
}

// AppendMessages builds a messages-channel patch value from the current log
// plus new entries. Convenience for the dominant handler pattern.
func AppendMessages(s *State, msgs ...Message) []Message {
	out := make([]Message, 0, len(s.Messages)+len(msgs))
	out = append(out, s.Messages...)
	out = append(out, msgs...)
	return out
}

// SetAccumulator builds an accumulators-channel patch value: the current
// accumulators with one key set. Needed because the accumulators reducer is
// replace, so a patch must carry the whole channel.
func SetAccumulator(s *State, key string, val any) map[string]any {
	out := cloneMap(s.Accumulators)
	out[key] = val
	return out
}

// AppendTrace builds a session_context patch fragment that extends the
// guardrail trace with the given markers. The trace is append-only; callers
// merge the returned map into their session_context patch.
func AppendTrace(s *State, markers ...string) map[string]any {
	trace := append(s.Trace(), markers...)
	return map[string]any{KeyTrace: trace}
}
