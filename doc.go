/*
Package colloquy is a declarative dialogue-graph engine: conversational
workflows are described as YAML documents, compiled into executable graphs,
and driven one turn at a time over an immutable, channel-partitioned
conversation state.

It separates the workflow shape (nodes, transitions, routing) from behavior
(handlers and routers registered in code) and from collaborators (model
clients, retrieval, review services) injected at compile time. That split
lets the same definition run behind a CLI, an HTTP API, or tests with fake
collaborators.

# Concept

A definition declares nodes by kind (router, question, ingest, compute,
integration, terminal) and references handlers and routers by key. The
compiler resolves every reference up front, so a graph that compiles cannot
hit a missing handler at runtime. The engine then executes turns: each turn
merges the user's message, walks the graph until it suspends on a question
or reaches the terminal marker, and re-validates the structural contract of
the resulting state.

State is never mutated in place. Handlers return patches; each state channel
has a fixed reducer (replace, or shallow-merge for session context), and a
turn's output is a brand-new snapshot the caller persists.

# Usage

Register flow modules, then compile and run:

	package main

	import (
		"context"
		"log"

		"github.com/arbory/colloquy"
		"github.com/arbory/colloquy/pkg/flows/intake"
		"github.com/arbory/colloquy/pkg/registry"
	)

	func main() {
		intake.Register(registry.Default())

		rt, err := colloquy.New(intake.Definition())
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		s := rt.NewSession("session-123")

		// Opening turn: no user input, the flow asks its first question.
		s, err = rt.RunTurn(ctx, s, "")
		if err != nil {
			log.Fatal(err)
		}

		for _, m := range s.Messages {
			log.Println(m.Role+":", m.Content)
		}
	}
*/
package colloquy
