package definition

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes and structurally validates a workflow document. It performs
// no registry lookups and no I/O; an error is always a *StructuralError
// (possibly wrapping a YAML decode failure).
func Parse(doc []byte) (*WorkflowDefinition, error) {
	var def WorkflowDefinition
	if err := yaml.Unmarshal(doc, &def); err != nil {
		return nil, structural("", "invalid document: %v", err)
	}
	if err := validateShape(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateShape(def *WorkflowDefinition) error {
	if def.GraphID == "" {
		return structural("graph_id", "required")
	}
	if def.Version == "" {
		return structural("version", "required")
	}
	if def.EntryPoint == "" {
		return structural("entry_point", "required")
	}
	if def.StateContract == "" {
		return structural("state_contract", "required")
	}
	if len(def.Nodes) == 0 {
		return structural("nodes", "must not be empty")
	}

	seen := make(map[string]bool, len(def.Nodes))
	for i, n := range def.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if n.ID == "" {
			return structural(field+".id", "required")
		}
		if n.ID == Terminal {
			return structural(field+".id", "%q is reserved", Terminal)
		}
		if seen[n.ID] {
			return structural(field+".id", "duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		if !ValidKind(n.Kind) {
			return structural(field+".kind", "unknown kind %q", n.Kind)
		}
		if n.Handler == "" {
			return structural(field+".handler", "required")
		}
	}

	for i, t := range def.Transitions.Static {
		field := fmt.Sprintf("transitions.static[%d]", i)
		if t.From == "" {
			return structural(field+".from", "required")
		}
		if t.To == "" {
			return structural(field+".to", "required")
		}
	}
	for i, t := range def.Transitions.Conditional {
		field := fmt.Sprintf("transitions.conditional[%d]", i)
		if t.From == "" {
			return structural(field+".from", "required")
		}
		if t.Router == "" {
			return structural(field+".router", "required")
		}
		if len(t.Destinations) == 0 {
			return structural(field+".destinations", "must not be empty")
		}
	}

	return nil
}
