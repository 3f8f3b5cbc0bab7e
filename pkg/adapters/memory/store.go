// Package memory provides an in-memory StateStore, used by the CLI session
// loop and as the default store in tests.
package memory

import (
	"context"
	"sync"

	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/state"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*state.State
	mu   sync.RWMutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]*state.State)}
}

// Save stores a deep copy so later mutations of the caller's state do not
// leak into the store.
func (s *Store) Save(ctx context.Context, sessionID string, st *state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = st.Clone()
	return nil
}

// Load returns a copy of the stored state.
func (s *Store) Load(ctx context.Context, sessionID string) (*state.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[sessionID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	return st.Clone(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the active session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
