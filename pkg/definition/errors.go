package definition

import "fmt"

// StructuralError reports a malformed workflow document. It is fatal at
// parse time: a workflow that fails structural validation is never served.
type StructuralError struct {
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("structural error: %s", e.Reason)
	}
	return fmt.Sprintf("structural error: %s: %s", e.Field, e.Reason)
}

func structural(field, format string, args ...any) *StructuralError {
	return &StructuralError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
