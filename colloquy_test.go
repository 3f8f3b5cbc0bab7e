package colloquy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbory/colloquy"
	"github.com/arbory/colloquy/pkg/definition"
	"github.com/arbory/colloquy/pkg/flows/intake"
	"github.com/arbory/colloquy/pkg/registry"
)

func TestNew_CompilesEmbeddedFlow(t *testing.T) {
	rc := registry.NewContext()
	intake.Register(rc)

	rt, err := colloquy.New(intake.Definition(), colloquy.WithRegistry(rc))
	require.NoError(t, err)
	require.NotNil(t, rt.Graph)
	assert.Equal(t, "intake", rt.Graph.ID)
}

func TestNew_StructuralErrorSurfaces(t *testing.T) {
	_, err := colloquy.New([]byte("graph_id: [not, a, string"))
	require.Error(t, err)
	var serr *definition.StructuralError
	assert.ErrorAs(t, err, &serr)
}

func TestRuntime_RunsOpeningTurn(t *testing.T) {
	rc := registry.NewContext()
	intake.Register(rc)

	rt, err := colloquy.New(intake.Definition(), colloquy.WithRegistry(rc))
	require.NoError(t, err)

	s, err := rt.RunTurn(context.Background(), rt.NewSession("sess-lib"), "")
	require.NoError(t, err)
	assert.True(t, s.AwaitingUser())
	assert.NotEmpty(t, s.Messages)
}
