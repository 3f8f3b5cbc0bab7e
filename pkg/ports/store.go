package ports

import (
	"context"
	"errors"

	"github.com/arbory/colloquy/pkg/state"
)

// ErrSessionNotFound is returned by Load when a session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// StateStore persists conversation state between turns. The engine itself
// never touches a store; the front door owns persistence and feeds each
// turn's output back as the next turn's input.
type StateStore interface {
	// Save persists the state for a session ID.
	Save(ctx context.Context, sessionID string, s *state.State) error

	// Load retrieves the state for a session ID.
	// Returns ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*state.State, error)

	// Delete removes the state for a session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the active session IDs.
	List(ctx context.Context) ([]string, error)
}
