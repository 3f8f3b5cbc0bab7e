package compiler

import "fmt"

// UnsupportedContractError reports a state-contract reference this runtime
// cannot validate. Fatal at compile time.
type UnsupportedContractError struct {
	Ref string
}

func (e *UnsupportedContractError) Error() string {
	return fmt.Sprintf("unsupported state contract %q", e.Ref)
}
