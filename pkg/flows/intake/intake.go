// Package intake is the reference workflow: a guided project-intake dialogue
// exercising the full engine surface: dispatcher routing, a numbered
// selection with clarifier retries, an answer-capture loop, cascading topic
// resolution and an AI-assisted template recommendation with a deterministic
// fallback.
package intake

import (
	_ "embed"

	"github.com/arbory/colloquy/pkg/definition"
	"github.com/arbory/colloquy/pkg/graph"
	"github.com/arbory/colloquy/pkg/registry"
	"github.com/arbory/colloquy/pkg/state"
)

// ModuleName guards idempotent registration.
const ModuleName = "flows/intake"

// Question keys: the closed set of values last_question_key takes while this
// flow awaits input. The dispatcher routes purely on these.
const (
	QKeyFocusArea     = "focus_area"
	QKeyTopicPriority = "topic_priority"
	QKeyDiscovery     = "discovery"
)

// Accumulator keys.
const (
	AccFocusArea     = "focus_area"
	AccTopics        = "topics"
	AccTopicPriority = "topic_priority"
	AccDiscovery     = "discovery"
	AccTemplate      = "template"
)

// Trace markers this flow writes beyond the primitives' own.
const (
	markerFocusSelected     = "focus:selected"
	markerPriorityDefaulted = "priority:defaulted"
	markerRecapDone         = "recap:done"
)

// defaultTenant scopes retrieval queries for the reference flow.
const defaultTenant = "default"

//go:embed definition.yaml
var definitionDoc []byte

// Definition returns the embedded workflow document.
func Definition() []byte {
	return definitionDoc
}

// Load parses the embedded workflow definition.
func Load() (*definition.WorkflowDefinition, error) {
	return definition.Parse(definitionDoc)
}

// Register installs the flow's handlers, routers and config functions into a
// registry context. Idempotent per context.
func Register(rc *registry.Context) {
	rc.Module(ModuleName, func(rc *registry.Context) {
		rc.RegisterHandler("intake.noop", handleNoop)
		rc.RegisterHandler("intake.welcome", handleWelcome)
		rc.RegisterHandler("intake.ingest_focus", handleIngestFocus)
		rc.RegisterHandler("intake.plan_topics", handlePlanTopics)
		rc.RegisterHandler("intake.ask_priority", handleAskPriority)
		rc.RegisterHandler("intake.ingest_priority", handleIngestPriority)
		rc.RegisterHandler("intake.discovery_loop", handleDiscoveryLoop)
		rc.RegisterHandler("intake.recommend", handleRecommend)
		rc.RegisterHandler("intake.recap", handleRecap)
		rc.RegisterHandler("intake.farewell", handleFarewell)

		rc.RegisterRouter("intake.dispatch", routeDispatch)
		rc.RegisterRouter("intake.after_focus", routeAfterFocus)
		rc.RegisterRouter("intake.after_priority", routeAfterPriority)
		rc.RegisterRouter("intake.loop_hold", routeLoopHold)

		rc.RegisterConfigProvider("intake.legacy_config", legacyConfig)
		rc.RegisterConfigFn("intake.examples", graph.ExampleGenerator(suggestedReplies))
		rc.RegisterConfigFn("intake.prefixes", graph.PrefixMapper(overlayPrefix))
	})
}

// legacyConfig is the fallback initializer for definitions without an inline
// config payload. The embedded definition carries inline config, so this
// only serves stripped-down variants.
func legacyConfig() (map[string]any, error) {
	return map[string]any{
		"focus_areas":          []string{"Shipping a new feature"},
		"topic_universe":       []string{"scope", "timeline"},
		"clarifier_retry_text": "Please reply with one of the numbers below.",
		"ack_phrases":          []string{"Thanks!"},
	}, nil
}

// suggestedReplies feeds the front door's quick-reply chips.
func suggestedReplies(s *state.State) []string {
	if !s.AwaitingUser() {
		return nil
	}
	switch s.LastQuestionKey() {
	case QKeyFocusArea, QKeyTopicPriority:
		return []string{"1", "2", "3"}
	default:
		return nil
	}
}

// overlayPrefix decorates outbound text per message kind for display
// surfaces that want it.
func overlayPrefix(kind string) string {
	switch kind {
	case state.KindRecap:
		return "Recap: "
	case state.KindClarifier:
		return "Hmm — "
	default:
		return ""
	}
}
