// Package tui renders conversation output for the interactive CLI.
package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/arbory/colloquy/pkg/lazy"
)

// Interactive reports whether stdout is a terminal. Piped output skips the
// banner and markdown styling.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// PrintBanner outputs the colloquy banner.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	s1 := termenv.String("            _ _                        ").Foreground(p.Color("#818cf8"))
	s2 := termenv.String("  ___  ___ | | | ___   __ _ _   _ _   _ ").Foreground(p.Color("#a78bfa"))
	s3 := termenv.String(" / __|/ _ \\| | |/ _ \\ / _` | | | | | | |").Foreground(p.Color("#c084fc"))
	s4 := termenv.String("| (__| (_) | | | (_) | (_| | |_| | |_| |").Foreground(p.Color("#e879f9"))
	s5 := termenv.String(" \\___|\\___/|_|_|\\___/ \\__, |\\__,_|\\__, |").Foreground(p.Color("#f472b6"))
	s6 := termenv.String("                         |_|      |___/ ").Foreground(p.Color("#fb7185"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Printf("  v%s\n\n", version)
}

// markdownRenderer is built once per process: glamour probes the terminal
// background on construction, which is not free and not concurrency-safe.
var markdownRenderer = lazy.New(func() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return nil
	}
	return r
})

// NewRenderer returns a function that renders markdown using glamour.
// Outside a terminal it falls back to passing text through unchanged.
func NewRenderer() func(string) (string, error) {
	plain := func(markdown string) (string, error) {
		return markdown + "\n", nil
	}
	if !Interactive() {
		return plain
	}
	r := markdownRenderer.Get()
	if r == nil {
		return plain
	}
	return r.Render
}
