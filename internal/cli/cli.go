// Package cli implements the colloquy command behaviors: the interactive
// session loop, definition validation, and the shared wiring both need.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/arbory/colloquy"
	"github.com/arbory/colloquy/internal/logging"
	"github.com/arbory/colloquy/internal/tui"
	"github.com/arbory/colloquy/pkg/adapters/memory"
	"github.com/arbory/colloquy/pkg/adapters/redis"
	"github.com/arbory/colloquy/pkg/flows/intake"
	"github.com/arbory/colloquy/pkg/ports"
	"github.com/arbory/colloquy/pkg/registry"
	"github.com/arbory/colloquy/pkg/state"
)

// RunOptions configures a CLI invocation.
type RunOptions struct {
	DefinitionPath string // empty means the embedded intake flow
	SessionID      string // empty means a fresh session
	RedisURL       string // empty means in-memory persistence
	Debug          bool
}

func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// loadDocument returns the definition document to run.
func loadDocument(path string) ([]byte, error) {
	if path == "" {
		return intake.Definition(), nil
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return doc, nil
}

// newRuntime registers the built-in flows and compiles the document.
func newRuntime(doc []byte, logger *slog.Logger) (*colloquy.Runtime, error) {
	intake.Register(registry.Default())
	return colloquy.New(doc, colloquy.WithLogger(logger))
}

func newStore(opts RunOptions) ports.StateStore {
	if opts.RedisURL != "" {
		return redis.New(opts.RedisURL, "", 0)
	}
	return memory.New()
}

// Validate parses and compiles a definition, reporting the first problem.
func Validate(path string) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}
	if _, err := newRuntime(doc, logging.NewNop()); err != nil {
		return err
	}
	return nil
}

// RunSession drives an interactive conversation on stdin/stdout until the
// flow completes, the user quits, or a signal arrives.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	doc, err := loadDocument(opts.DefinitionPath)
	if err != nil {
		return err
	}
	rt, err := newRuntime(doc, logger)
	if err != nil {
		return fmt.Errorf("failed to compile definition: %w", err)
	}

	if tui.Interactive() {
		tui.PrintBanner(colloquy.Version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := newStore(opts)
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	s, resumed, err := hydrateSession(ctx, store, opts.SessionID)
	if err != nil {
		return err
	}
	logger.Info("session ready", "session_id", s.SessionID(), "resumed", resumed)

	render := tui.NewRenderer()
	printFrom := len(s.Messages)

	// Opening turn for fresh sessions; resumed ones wait for input.
	if !resumed {
		if s, err = rt.RunTurn(ctx, s, ""); err != nil {
			return err
		}
		if err := store.Save(ctx, s.SessionID(), s); err != nil {
			return err
		}
		printMessages(rt, render, s, printFrom)
		printFrom = len(s.Messages)
	}

	reader := bufio.NewReader(os.Stdin)
	for !completed(s) {
		if ctx.Err() != nil {
			fmt.Println("\nSession saved. Bye!")
			return nil
		}

		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "/quit" {
			fmt.Println("Session saved. Bye!")
			return nil
		}

		if s, err = rt.RunTurn(ctx, s, input); err != nil {
			return err
		}
		if err := store.Save(ctx, s.SessionID(), s); err != nil {
			return err
		}
		printMessages(rt, render, s, printFrom)
		printFrom = len(s.Messages)
	}

	return nil
}

func hydrateSession(ctx context.Context, store ports.StateStore, sessionID string) (*state.State, bool, error) {
	if sessionID == "" {
		return state.New(uuid.New().String()), false, nil
	}
	s, err := store.Load(ctx, sessionID)
	if err == nil {
		return s, true, nil
	}
	if errors.Is(err, ports.ErrSessionNotFound) {
		return state.New(sessionID), false, nil
	}
	return nil, false, err
}

func completed(s *state.State) bool {
	done, _ := s.SessionContext[state.KeyCompleted].(bool)
	return done
}

// printMessages renders this turn's agent messages, honoring the behavior's
// display prefixes.
func printMessages(rt *colloquy.Runtime, render func(string) (string, error), s *state.State, from int) {
	cfg := rt.Graph.Env.Config
	for _, m := range s.Messages[from:] {
		if m.Role != state.RoleAgent {
			continue
		}
		text := m.Content
		if cfg != nil && cfg.OverlayPrefix != nil {
			text = cfg.OverlayPrefix(m.Kind) + text
		}
		out, err := render(text)
		if err != nil {
			out = text + "\n"
		}
		fmt.Print(out)
	}
}
