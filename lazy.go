package keel

import (
	"fmt"
	"sync"
)

// Lazy wraps a dependency that is resolved on first access.
// Components registered eagerly can hold a Lazy for a name that is only
// registered later, which the eager build would otherwise reject.
type Lazy[T any] struct {
	container *Container
	name      string
	once      sync.Once
	value     T
	err       error
	resolved  bool
}

// NewLazy creates a new lazy dependency wrapper.
func NewLazy[T any](container *Container, name string) *Lazy[T] {
	return &Lazy[T]{
		container: container,
		name:      name,
	}
}

// Get resolves the dependency and returns it.
// The resolution happens only once; subsequent calls return the cached value.
// Get must not be called from a factory or middleware: the container is
// locked while it builds, and the call would never return.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.value, l.err = Resolve[T](l.container, l.name)
		l.resolved = l.err == nil
	})

	return l.value, l.err
}

// MustGet resolves the dependency and returns it, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("lazy dependency %s failed: %v", l.name, err))
	}

	return value
}

// IsResolved returns true if the dependency has been resolved.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved
}

// Name returns the name of the dependency.
func (l *Lazy[T]) Name() string {
	return l.name
}

// Provider resolves a dependency on every call. For transient services each
// call yields a new instance.
type Provider[T any] struct {
	container *Container
	name      string
}

// NewProvider creates a new provider for transient dependencies.
func NewProvider[T any](container *Container, name string) *Provider[T] {
	return &Provider[T]{
		container: container,
		name:      name,
	}
}

// Provide resolves and returns the dependency.
func (p *Provider[T]) Provide() (T, error) {
	return Resolve[T](p.container, p.name)
}

// MustProvide resolves and returns a new instance, panicking on error.
func (p *Provider[T]) MustProvide() T {
	value, err := p.Provide()
	if err != nil {
		panic(fmt.Sprintf("provider %s failed: %v", p.name, err))
	}

	return value
}

// Name returns the name of the dependency.
func (p *Provider[T]) Name() string {
	return p.name
}
