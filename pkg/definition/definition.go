// Package definition holds the declarative workflow document: graph
// metadata, nodes, transitions and configuration references. Parsing is a
// pure structural check: it guarantees shape, not resolvability. Resolving
// references against a registry is the compiler's job.
package definition

// Terminal is the reserved transition endpoint that ends a turn. It is never
// a node id.
const Terminal = "__end__"

// Node kinds form a closed set.
const (
	KindRouter      = "router"
	KindQuestion    = "question"
	KindIngest      = "ingest"
	KindCompute     = "compute"
	KindIntegration = "integration"
	KindTerminal    = "terminal"
)

var validKinds = map[string]bool{
	KindRouter:      true,
	KindQuestion:    true,
	KindIngest:      true,
	KindCompute:     true,
	KindIntegration: true,
	KindTerminal:    true,
}

// WorkflowDefinition is the parsed declarative document. Immutable once
// parsed.
type WorkflowDefinition struct {
	GraphID     string   `yaml:"graph_id" json:"graph_id"`
	Version     string   `yaml:"version" json:"version"`
	EntryPoint  string   `yaml:"entry_point" json:"entry_point"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// StateContract names the structural contract the runtime validates
	// conversation state against (e.g. "conversation/v1").
	StateContract string `yaml:"state_contract" json:"state_contract"`

	Nodes       []Node      `yaml:"nodes" json:"nodes"`
	Transitions Transitions `yaml:"transitions" json:"transitions"`

	// RoutingKeys is informational: the closed set of router return values
	// the definition's authors expect. Not enforced.
	RoutingKeys []string `yaml:"routing_keys,omitempty" json:"routing_keys,omitempty"`

	RuntimeConfig RuntimeConfigRefs `yaml:"runtime_config,omitempty" json:"runtime_config,omitempty"`

	// Config is the inline static behavior payload. When present it always
	// wins over the legacy init_config provider.
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`

	Validation *ValidationHints `yaml:"validation,omitempty" json:"validation,omitempty"`
}

// Node declares one unit of work bound to a registered handler.
type Node struct {
	ID      string `yaml:"id" json:"id"`
	Kind    string `yaml:"kind" json:"kind"`
	Handler string `yaml:"handler" json:"handler"`

	Helpers []string `yaml:"helpers,omitempty" json:"helpers,omitempty"`

	// Reads and Writes document the state paths a node touches. They are
	// documentation only; the runtime does not enforce them.
	Reads  []string `yaml:"reads,omitempty" json:"reads,omitempty"`
	Writes []string `yaml:"writes,omitempty" json:"writes,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Transitions groups the static and conditional edges of the graph.
type Transitions struct {
	Static      []StaticTransition      `yaml:"static,omitempty" json:"static,omitempty"`
	Conditional []ConditionalTransition `yaml:"conditional,omitempty" json:"conditional,omitempty"`
}

// StaticTransition is an unconditional edge. To may be a node id or Terminal.
type StaticTransition struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// ConditionalTransition routes on a registered router's return value.
type ConditionalTransition struct {
	From         string            `yaml:"from" json:"from"`
	Router       string            `yaml:"router" json:"router"`
	Destinations map[string]string `yaml:"destinations" json:"destinations"`
}

// RuntimeConfigRefs are symbolic references to registered configuration
// functions and providers.
type RuntimeConfigRefs struct {
	// InitConfig is the legacy fallback initializer, invoked only when no
	// inline config payload exists.
	InitConfig string `yaml:"init_config,omitempty" json:"init_config,omitempty"`

	ModelAliases map[string]string `yaml:"model_aliases,omitempty" json:"model_aliases,omitempty"`

	MessagePolicy  string `yaml:"message_policy,omitempty" json:"message_policy,omitempty"`
	PromptSet      string `yaml:"prompt_set,omitempty" json:"prompt_set,omitempty"`
	DeliveryPolicy string `yaml:"delivery_policy,omitempty" json:"delivery_policy,omitempty"`

	// ExampleGenerator and OverlayPrefix name registered config functions
	// merged into the behavior config at compile time.
	ExampleGenerator string `yaml:"example_generator,omitempty" json:"example_generator,omitempty"`
	OverlayPrefix    string `yaml:"overlay_prefix,omitempty" json:"overlay_prefix,omitempty"`
}

// ValidationHints are author-supplied expectations. Documentation only in
// this runtime.
type ValidationHints struct {
	RequiredStateFields []string `yaml:"required_state_fields,omitempty" json:"required_state_fields,omitempty"`
	Invariants          []string `yaml:"invariants,omitempty" json:"invariants,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (d *WorkflowDefinition) NodeByID(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// ValidKind reports whether kind belongs to the closed node-kind set.
func ValidKind(kind string) bool {
	return validKinds[kind]
}
