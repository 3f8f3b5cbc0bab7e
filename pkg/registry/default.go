package registry

import "github.com/arbory/colloquy/pkg/graph"

// defaultContext is the process-wide registry used by the package-level
// helpers. Prefer passing an explicit *Context into compilation; this
// wrapper exists for call-site ergonomics.
var defaultContext = NewContext()

// Default returns the process-wide registry context.
func Default() *Context { return defaultContext }

// Module runs a registration body against the default context, at most once
// per module name.
func Module(name string, register func(*Context)) { defaultContext.Module(name, register) }

// RegisterHandler registers a handler on the default context.
func RegisterHandler(key string, fn graph.Handler) { defaultContext.RegisterHandler(key, fn) }

// RegisterRouter registers a router on the default context.
func RegisterRouter(key string, fn graph.Router) { defaultContext.RegisterRouter(key, fn) }

// RegisterConfigProvider registers a config provider on the default context.
func RegisterConfigProvider(key string, fn graph.ConfigProvider) {
	defaultContext.RegisterConfigProvider(key, fn)
}

// RegisterConfigFn registers a dynamic config function on the default context.
func RegisterConfigFn(key string, fn any) { defaultContext.RegisterConfigFn(key, fn) }

// Reset clears the default context. Test use only.
func Reset() { defaultContext.Reset() }
