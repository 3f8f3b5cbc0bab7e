package memory_test

import (
	"testing"

	"github.com/arbory/colloquy/pkg/adapters/memory"
	"github.com/arbory/colloquy/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.New()
	ports.RunStateStoreContract(t, store)
}
