package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbory/colloquy/pkg/state"
)

// RunStateStoreContract verifies that a StateStore implementation adheres to
// the interface contract. Adapter test packages call this with their store.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := state.New(sessionID)
		s.Messages = append(s.Messages, state.Message{Role: state.RoleAgent, Content: "hello", Kind: state.KindQuestion})
		s.Accumulators["focus_area"] = "testing"

		require.NoError(t, store.Save(ctx, sessionID, s))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, loaded.SessionID())
		require.Len(t, loaded.Messages, 1)
		assert.Equal(t, "hello", loaded.Messages[0].Content)
		assert.Equal(t, "testing", loaded.Accumulators["focus_area"])

		// Loaded state must still satisfy the structural contract.
		assert.NoError(t, state.Validate(loaded))
	})

	t.Run("Load isolation", func(t *testing.T) {
		s := state.New(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, s))

		first, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		first.Accumulators["mutated"] = true

		second, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, second.Accumulators, "mutated", "stores must hand out copies")
	})

	t.Run("Load non-existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, state.New(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, state.New(id1)))
		require.NoError(t, store.Save(ctx, id2, state.New(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
