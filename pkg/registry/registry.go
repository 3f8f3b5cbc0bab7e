// Package registry holds the string-keyed functions a workflow definition
// references by name: node handlers, routers, and configuration providers
// and functions. Registration happens during process init, before the first
// compile; afterwards the registry is read-only shared state.
//
// A Context is explicit and injectable so compilation stays pure and
// testable; the package-level Default context exists only for call-site
// ergonomics.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arbory/colloquy/pkg/graph"
)

// Kind discriminates the registrable function families.
type Kind string

const (
	KindHandler        Kind = "handler"
	KindRouter         Kind = "router"
	KindConfigProvider Kind = "configprovider"
	KindConfigFn       Kind = "configfn"
)

// UnresolvedReferenceError reports a registry key that could not be
// resolved. Fatal at compile time. Where carries node or transition context
// when the compiler raises it.
type UnresolvedReferenceError struct {
	Kind  Kind
	Key   string
	Where string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("unresolved %s reference %q", e.Kind, e.Key)
	}
	return fmt.Sprintf("unresolved %s reference %q (%s)", e.Kind, e.Key, e.Where)
}

// Context is an isolated registry. Safe for concurrent use; append-only
// after init by convention.
type Context struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]any
	modules map[string]bool
}

// NewContext creates an empty registry context.
func NewContext() *Context {
	return &Context{
		entries: make(map[Kind]map[string]any),
		modules: make(map[string]bool),
	}
}

// Module runs a registration body at most once per module name. This is the
// idempotence guard: re-running the same module's registration is a no-op,
// so init-time double imports never double-register.
func (c *Context) Module(name string, register func(*Context)) {
	c.mu.Lock()
	if c.modules[name] {
		c.mu.Unlock()
		return
	}
	c.modules[name] = true
	c.mu.Unlock()

	register(c)
}

func (c *Context) put(kind Kind, key string, fn any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.entries[kind]
	if !ok {
		bucket = make(map[string]any)
		c.entries[kind] = bucket
	}
	// Last registration wins; key counts stay stable on re-registration.
	bucket[key] = fn
}

func (c *Context) get(kind Kind, key string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.entries[kind][key]
	if !ok {
		return nil, &UnresolvedReferenceError{Kind: kind, Key: key}
	}
	return fn, nil
}

// RegisterHandler stores a node handler under key.
func (c *Context) RegisterHandler(key string, fn graph.Handler) {
	c.put(KindHandler, key, fn)
}

// RegisterRouter stores a router under key.
func (c *Context) RegisterRouter(key string, fn graph.Router) {
	c.put(KindRouter, key, fn)
}

// RegisterConfigProvider stores a legacy config initializer under key.
func (c *Context) RegisterConfigProvider(key string, fn graph.ConfigProvider) {
	c.put(KindConfigProvider, key, fn)
}

// RegisterConfigFn stores a dynamic config function (example generator,
// prefix mapper, ...) under key. The compiler type-asserts on resolution.
func (c *Context) RegisterConfigFn(key string, fn any) {
	c.put(KindConfigFn, key, fn)
}

// ResolveHandler returns the handler registered under key.
func (c *Context) ResolveHandler(key string) (graph.Handler, error) {
	fn, err := c.get(KindHandler, key)
	if err != nil {
		return nil, err
	}
	h, ok := fn.(graph.Handler)
	if !ok {
		return nil, &UnresolvedReferenceError{Kind: KindHandler, Key: key, Where: fmt.Sprintf("registered value has type %T", fn)}
	}
	return h, nil
}

// ResolveRouter returns the router registered under key.
func (c *Context) ResolveRouter(key string) (graph.Router, error) {
	fn, err := c.get(KindRouter, key)
	if err != nil {
		return nil, err
	}
	r, ok := fn.(graph.Router)
	if !ok {
		return nil, &UnresolvedReferenceError{Kind: KindRouter, Key: key, Where: fmt.Sprintf("registered value has type %T", fn)}
	}
	return r, nil
}

// ResolveConfigProvider returns the config provider registered under key.
func (c *Context) ResolveConfigProvider(key string) (graph.ConfigProvider, error) {
	fn, err := c.get(KindConfigProvider, key)
	if err != nil {
		return nil, err
	}
	p, ok := fn.(graph.ConfigProvider)
	if !ok {
		return nil, &UnresolvedReferenceError{Kind: KindConfigProvider, Key: key, Where: fmt.Sprintf("registered value has type %T", fn)}
	}
	return p, nil
}

// ResolveConfigFn returns the raw dynamic config function registered under
// key. Callers assert the concrete signature.
func (c *Context) ResolveConfigFn(key string) (any, error) {
	return c.get(KindConfigFn, key)
}

// List returns the sorted keys registered under kind.
func (c *Context) List(kind Kind) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries[kind]))
	for k := range c.entries[kind] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears all entries and module guards. Test use only.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Kind]map[string]any)
	c.modules = make(map[string]bool)
}
