package keel

import (
	"context"
	"fmt"
)

// Resolve with type safety.
func Resolve[T any](c *Container, name string) (T, error) {
	return ResolveContext[T](context.Background(), c, name)
}

// ResolveContext resolves with type safety, passing ctx to middleware.
func ResolveContext[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T

	instance, err := c.ResolveContext(ctx, name)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: service %s is not of type %T", ErrTypeMismatch(name, instance), name, zero)
	}

	return typed, nil
}

// Must resolves or panics - use only during startup.
func Must[T any](c *Container, name string) T {
	instance, err := Resolve[T](c, name)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", name, err))
	}

	return instance
}

// ResolveAll resolves name and returns its instances as a slice, whether the
// name holds one registration or several.
func ResolveAll[T any](c *Container, name string) ([]T, error) {
	instance, err := c.Resolve(name)
	if err != nil {
		return nil, err
	}

	return flatten[T](name, instance)
}

// GetAll resolves every component tagged with componentType and flattens the
// result into a typed slice.
func GetAll[T any](c *Container, componentType string) ([]T, error) {
	instances, err := c.GetAll(componentType)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(instances))

	for _, instance := range instances {
		typed, err := flatten[T](componentType, instance)
		if err != nil {
			return nil, err
		}

		result = append(result, typed...)
	}

	return result, nil
}

// flatten converts a single instance or a []any into []T.
func flatten[T any](name string, instance any) ([]T, error) {
	list, ok := instance.([]any)
	if !ok {
		list = []any{instance}
	}

	result := make([]T, 0, len(list))

	for _, item := range list {
		typed, ok := item.(T)
		if !ok {
			return nil, ErrTypeMismatch(name, item)
		}

		result = append(result, typed)
	}

	return result, nil
}

// RegisterSingleton is a convenience wrapper for singleton services.
func RegisterSingleton[T any](c *Container, name string, factory func() (T, error), opts ...RegisterOption) error {
	return c.Register(name, func() (any, error) {
		return factory()
	}, append(opts, Singleton())...)
}

// RegisterTransient is a convenience wrapper for transient services.
func RegisterTransient[T any](c *Container, name string, factory func() (T, error), opts ...RegisterOption) error {
	return c.Register(name, func() (any, error) {
		return factory()
	}, append(opts, Transient())...)
}

// RegisterValue registers a pre-built instance (always singleton).
func RegisterValue[T any](c *Container, name string, instance T, opts ...RegisterOption) error {
	return c.RegisterInstance(name, instance, opts...)
}

// GetLogger resolves the logger registered by the core container.
func GetLogger(c *Container) (Logger, error) {
	l, err := c.Resolve(LoggerKey.Name())
	if err != nil {
		return nil, err
	}

	log, ok := l.(Logger)
	if !ok {
		return nil, ErrTypeMismatch(LoggerKey.Name(), l)
	}

	return log, nil
}
