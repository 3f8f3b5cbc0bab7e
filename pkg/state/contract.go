package state

import (
	"fmt"
	"strings"
)

// ContractConversationV1 is the structural contract this package implements.
// Workflow definitions name their contract; the compiler rejects anything it
// does not recognize.
const ContractConversationV1 = "conversation/v1"

// RecognizedContract reports whether ref names a contract this runtime can
// validate.
func RecognizedContract(ref string) bool {
	return ref == ContractConversationV1
}

// ContractViolation reports a state that failed post-turn re-validation.
// This is an implementer bug, never user input: it must fail loudly.
type ContractViolation struct {
	Violations []string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("state contract violation: %s", strings.Join(e.Violations, "; "))
}

// Validate checks a state against the conversation/v1 contract. It returns
// a *ContractViolation listing every problem found, or nil.
func Validate(s *State) error {
	var violations []string

	if s == nil {
		return &ContractViolation{Violations: []string{"state is nil"}}
	}
	if s.SessionContext == nil {
		violations = append(violations, "session_context is nil")
	} else {
		if id, ok := s.SessionContext[KeySessionID].(string); !ok || id == "" {
			violations = append(violations, "session_context.session_id must be a non-empty string")
		}
		if v, ok := s.SessionContext[KeyAwaitingUser]; ok {
			if _, isBool := v.(bool); !isBool {
				violations = append(violations, fmt.Sprintf("session_context.awaiting_user must be bool, got %T", v))
			}
		}
		if v, ok := s.SessionContext[KeyTrace]; ok && v != nil {
			switch tr := v.(type) {
			case []string:
			case []any:
				for i, e := range tr {
					if _, isStr := e.(string); !isStr {
						violations = append(violations, fmt.Sprintf("session_context.trace[%d] must be string, got %T", i, e))
					}
				}
			default:
				violations = append(violations, fmt.Sprintf("session_context.trace must be a string list, got %T", v))
			}
		}
		if v, ok := s.SessionContext[KeyLastQuestion]; ok && v != nil {
			if _, isStr := v.(string); !isStr {
				violations = append(violations, fmt.Sprintf("session_context.last_question_key must be string, got %T", v))
			}
		}
	}

	if s.Messages == nil {
		violations = append(violations, "messages is nil")
	}
	for i, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAgent {
			violations = append(violations, fmt.Sprintf("messages[%d].role %q is not a valid role", i, m.Role))
		}
		if m.Content == "" {
			violations = append(violations, fmt.Sprintf("messages[%d].content is empty", i))
		}
	}

	if s.Profile == nil {
		violations = append(violations, "profile is nil")
	}
	if s.Accumulators == nil {
		violations = append(violations, "accumulators is nil")
	}
	if s.RetrievalCache == nil {
		violations = append(violations, "retrieval_cache is nil")
	}

	if len(violations) > 0 {
		return &ContractViolation{Violations: violations}
	}
	return nil
}
