package graph

// Question is one entry of a declared question list.
type Question struct {
	Key  string `mapstructure:"key" json:"key"`
	Text string `mapstructure:"text" json:"text"`
}

// ModelParams are the language-model invocation parameters for a graph.
type ModelParams struct {
	Alias       string  `mapstructure:"alias" json:"alias"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
}

// Behavior is the static behavior payload of a compiled graph: labels,
// templates, policies and the dynamic config functions resolved from the
// registry. Decoded from the definition's inline config (which always wins)
// or from the legacy init_config provider.
type Behavior struct {
	StepLabels map[string]string `mapstructure:"step_labels" json:"step_labels,omitempty"`

	Model        ModelParams       `mapstructure:"model" json:"model"`
	ModelAliases map[string]string `mapstructure:"-" json:"model_aliases,omitempty"`

	// ReviewKinds lists the message kinds passed through the text-review
	// collaborator after a turn.
	ReviewKinds []string `mapstructure:"review_kinds" json:"review_kinds,omitempty"`

	Prompts    map[string]string `mapstructure:"prompts" json:"prompts,omitempty"`
	Questions  []Question        `mapstructure:"questions" json:"questions,omitempty"`
	FocusAreas []string          `mapstructure:"focus_areas" json:"focus_areas,omitempty"`

	// TopicUniverse is the known-good topic set cascading resolution is
	// allowed to commit from.
	TopicUniverse []string `mapstructure:"topic_universe" json:"topic_universe,omitempty"`

	ClarifierRetryText string   `mapstructure:"clarifier_retry_text" json:"clarifier_retry_text,omitempty"`
	AckPhrases         []string `mapstructure:"ack_phrases" json:"ack_phrases,omitempty"`

	Voice           string   `mapstructure:"voice" json:"voice,omitempty"`
	DeliveryTargets []string `mapstructure:"delivery_targets" json:"delivery_targets,omitempty"`

	MessagePolicy string `mapstructure:"message_policy" json:"message_policy,omitempty"`

	// Resolved dynamic config functions. Nil when the definition references
	// none.
	ExampleGenerator ExampleGenerator `mapstructure:"-" json:"-"`
	OverlayPrefix    PrefixMapper     `mapstructure:"-" json:"-"`
}

// Reviewable reports whether messages of the given kind should pass through
// the text-review collaborator.
func (b *Behavior) Reviewable(kind string) bool {
	for _, k := range b.ReviewKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Prompt returns a named prompt template, or "" when absent.
func (b *Behavior) Prompt(name string) string {
	return b.Prompts[name]
}

// AckPhrase returns the first acknowledgement phrase, or "".
func (b *Behavior) AckPhrase() string {
	if len(b.AckPhrases) == 0 {
		return ""
	}
	return b.AckPhrases[0]
}
