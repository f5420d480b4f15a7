package keel

import (
	"fmt"
	"maps"
	"slices"
)

// Lifecycle is the scope of the instances a descriptor produces.
type Lifecycle string

const (
	// LifecycleSingleton shares one instance per registration for the container's lifetime.
	LifecycleSingleton Lifecycle = "singleton"

	// LifecycleTransient builds a fresh instance, with its whole dependency subtree, on every resolve.
	LifecycleTransient Lifecycle = "transient"
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	return string(l)
}

// Factory builds a bare instance. Dependencies are assigned to the returned
// value afterwards, so factories take no arguments. A factory may return
// (nil, nil) when it has nothing to offer; such an entry yields no instance.
type Factory func() (any, error)

// Construct returns a factory producing a zero *T, ready for field injection.
func Construct[T any]() Factory {
	return func() (any, error) {
		return new(T), nil
	}
}

// Dependency binds an exported struct field to the name of the component that fills it.
type Dependency struct {
	Field string
	Key   string
}

// Strategy binds an exported struct field to an interface name. Every
// component registered under that name is a candidate implementation.
type Strategy struct {
	Field     string
	Interface string
}

// Descriptor is the static description of one registrable component.
// The container copies it on registration; it is never mutated afterwards.
type Descriptor struct {
	Name          string
	Factory       Factory
	Lifecycle     Lifecycle
	Dependencies  []Dependency
	Strategies    []Strategy
	ComponentType string
	Metadata      map[string]string
}

// Describe builds a descriptor from options. Singleton is the default lifecycle.
//
// Example:
//
//	d := keel.Describe("UserController", keel.Construct[UserController](),
//	    keel.Transient(),
//	    keel.Inject("Users", "UserService"),
//	    keel.InjectStrategy("Listeners", "RequestListener"),
//	    keel.WithComponentType("controller"),
//	)
func Describe(name string, factory Factory, opts ...RegisterOption) Descriptor {
	d := Descriptor{
		Name:      name,
		Factory:   factory,
		Lifecycle: LifecycleSingleton,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}

	return d
}

// IsSingleton reports whether the descriptor has singleton scope.
func (d Descriptor) IsSingleton() bool {
	return d.Lifecycle == LifecycleSingleton
}

// Keys returns every name the descriptor needs resolved: dependency keys
// followed by non-empty strategy interfaces, in declaration order.
func (d Descriptor) Keys() []string {
	keys := make([]string, 0, len(d.Dependencies)+len(d.Strategies))
	for _, dep := range d.Dependencies {
		keys = append(keys, dep.Key)
	}

	for _, s := range d.Strategies {
		if s.Interface != "" {
			keys = append(keys, s.Interface)
		}
	}

	return keys
}

// Validate checks the descriptor is complete.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: service name cannot be empty", ErrInvalidDescriptorSentinel)
	}

	if d.Factory == nil {
		return ErrInvalidFactory
	}

	switch d.Lifecycle {
	case LifecycleSingleton, LifecycleTransient:
	default:
		return ErrInvalidDescriptor(d.Name, fmt.Sprintf("unknown lifecycle %q", d.Lifecycle))
	}

	fields := make(map[string]bool, len(d.Dependencies)+len(d.Strategies))

	for _, dep := range d.Dependencies {
		if dep.Field == "" || dep.Key == "" {
			return ErrInvalidDescriptor(d.Name, "dependency needs both field and key")
		}

		if fields[dep.Field] {
			return ErrInvalidDescriptor(d.Name, fmt.Sprintf("field %q injected twice", dep.Field))
		}

		fields[dep.Field] = true
	}

	for _, s := range d.Strategies {
		if s.Field == "" {
			return ErrInvalidDescriptor(d.Name, "strategy needs a field")
		}

		if fields[s.Field] {
			return ErrInvalidDescriptor(d.Name, fmt.Sprintf("field %q injected twice", s.Field))
		}

		fields[s.Field] = true
	}

	return nil
}

// clone returns a deep copy so callers cannot mutate a registered descriptor.
func (d Descriptor) clone() Descriptor {
	d.Dependencies = slices.Clone(d.Dependencies)
	d.Strategies = slices.Clone(d.Strategies)
	d.Metadata = maps.Clone(d.Metadata)

	return d
}
