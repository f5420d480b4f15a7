package keel

import (
	"go.uber.org/zap"
)

// RegisterOption is a configuration option for service registration.
type RegisterOption func(*Descriptor)

// Singleton makes the service a singleton (default).
func Singleton() RegisterOption {
	return func(d *Descriptor) {
		d.Lifecycle = LifecycleSingleton
	}
}

// Transient makes the service created on each resolve.
func Transient() RegisterOption {
	return func(d *Descriptor) {
		d.Lifecycle = LifecycleTransient
	}
}

// WithLifecycle sets the lifecycle explicitly.
func WithLifecycle(lifecycle Lifecycle) RegisterOption {
	return func(d *Descriptor) {
		d.Lifecycle = lifecycle
	}
}

// WithComponentType tags the service so GetAll can find it.
func WithComponentType(componentType string) RegisterOption {
	return func(d *Descriptor) {
		d.ComponentType = componentType
	}
}

// WithMetadata adds diagnostic metadata to the registration.
func WithMetadata(key, value string) RegisterOption {
	return func(d *Descriptor) {
		if d.Metadata == nil {
			d.Metadata = make(map[string]string)
		}

		d.Metadata[key] = value
	}
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for container diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMiddleware installs resolution hooks at construction time.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Container) {
		for _, mw := range middleware {
			c.middleware.add(mw)
		}
	}
}
