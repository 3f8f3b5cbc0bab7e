package intake

import (
	"github.com/arbory/colloquy/pkg/state"
)

// routeDispatch is the top-level dispatcher. Order matters: a session that
// is awaiting input always routes on the last-asked question's key; only
// afterwards do trace markers decide how far the flow has advanced. The
// tie-break everywhere is to prefer ending the turn over racing ahead.
func routeDispatch(s *state.State) string {
	if completed, _ := s.SessionContext[state.KeyCompleted].(bool); completed {
		return "end"
	}
	if len(s.Messages) == 0 {
		return "welcome"
	}

	if s.AwaitingUser() {
		switch s.LastQuestionKey() {
		case QKeyFocusArea:
			return "ingest_focus"
		case QKeyTopicPriority:
			return "ingest_priority"
		case QKeyDiscovery:
			return "discovery"
		default:
			// Unknown question key is data-dependent, not a wiring error:
			// end the turn rather than guess.
			return "end"
		}
	}

	if s.HasTrace(markerRecapDone) {
		return "farewell"
	}
	if s.HasTrace(AccDiscovery+":complete") || s.HasTrace(AccDiscovery+":empty") {
		return "recommend"
	}
	if str(s.Accumulators[AccTopicPriority]) != "" {
		// Priority chosen but the loop never started (e.g. defaulted
		// priority ended the previous turn).
		return "discovery"
	}
	if str(s.Accumulators[AccFocusArea]) == "" {
		return "welcome"
	}
	return "end"
}

// routeAfterFocus gates on the focus accumulator: proceed to topic planning
// only once a focus area is committed, otherwise let the ingest node's own
// retry messaging stand.
func routeAfterFocus(s *state.State) string {
	if str(s.Accumulators[AccFocusArea]) != "" && !s.AwaitingUser() {
		return "proceed"
	}
	return "end"
}

// routeAfterPriority mirrors routeAfterFocus for the topic-priority step.
func routeAfterPriority(s *state.State) string {
	if str(s.Accumulators[AccTopicPriority]) != "" && !s.AwaitingUser() {
		return "proceed"
	}
	return "end"
}

// routeLoopHold unconditionally ends the turn. Whether the loop is still
// awaiting answers or has just completed, the dispatcher alone decides on
// the NEXT inbound message whether to resume it or advance past it. This
// keeps every loop-advancing turn returning fresh feedback to the caller.
func routeLoopHold(s *state.State) string {
	return "end"
}

func str(v any) string {
	out, _ := v.(string)
	return out
}
