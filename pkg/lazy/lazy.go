// Package lazy provides a compute-once process-wide holder for expensive
// shared handles such as collaborator clients. First use under concurrent
// access is safe: the constructor runs exactly once and the result is cached
// for the process lifetime.
package lazy

import "sync"

// Value holds a lazily constructed T.
type Value[T any] struct {
	once sync.Once
	fn   func() T
	v    T
}

// New wraps a constructor. The constructor does not run until Get.
func New[T any](fn func() T) *Value[T] {
	return &Value[T]{fn: fn}
}

// Get returns the held value, constructing it on first call.
func (l *Value[T]) Get() T {
	l.once.Do(func() {
		l.v = l.fn()
		l.fn = nil
	})
	return l.v
}
