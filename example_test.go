package colloquy_test

import (
	"context"
	"fmt"
	"log"

	"github.com/arbory/colloquy"
	"github.com/arbory/colloquy/pkg/flows/intake"
	"github.com/arbory/colloquy/pkg/registry"
)

// ExampleNew demonstrates compiling the embedded intake flow and running the
// opening turn. The first turn needs no user input: the flow greets the user
// and asks its first question.
func ExampleNew() {
	// 1. Register the flow module so the compiler can resolve its handlers.
	intake.Register(registry.Default())

	// 2. Compile the embedded definition.
	rt, err := colloquy.New(intake.Definition())
	if err != nil {
		log.Fatal(err)
	}

	// 3. Run the opening turn on a fresh session.
	ctx := context.Background()
	s, err := rt.RunTurn(ctx, rt.NewSession("example"), "")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(s.Messages[0].Content)
	fmt.Println("awaiting:", s.AwaitingUser())
	// Output:
	// Hi! I'll walk you through a short intake — four quick steps.
	// awaiting: true
}
