// Package observability exposes the engine's Prometheus metrics. Counters
// are registered once at init through promauto; the HTTP adapter serves them
// under /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colloquy_turns_total",
			Help: "Completed turns per graph and result.",
		},
		[]string{"graph", "result"},
	)

	compileFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colloquy_compile_failures_total",
			Help: "Workflow compilations rejected, by error class.",
		},
		[]string{"class"},
	)

	fallbackMarkersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colloquy_fallback_markers_total",
			Help: "Resilience-primitive fallback branches taken, by primitive.",
		},
		[]string{"primitive"},
	)
)

// ObserveTurn records a completed or failed turn.
func ObserveTurn(graphID, result string) {
	turnsTotal.WithLabelValues(graphID, result).Inc()
}

// ObserveCompileFailure records a rejected compilation.
func ObserveCompileFailure(class string) {
	compileFailuresTotal.WithLabelValues(class).Inc()
}

// ObserveFallback records a resilience fallback branch.
func ObserveFallback(primitive string) {
	fallbackMarkersTotal.WithLabelValues(primitive).Inc()
}
