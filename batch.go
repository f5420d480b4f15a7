package keel

// Service creates a Descriptor for batch registration.
// This is a convenience alias of Describe that reads well in lists.
//
// Example:
//
//	keel.RegisterServices(c,
//	    keel.Service("db", NewDatabase),
//	    keel.Service("cache", NewCache, keel.Inject("DB", "db")),
//	)
func Service(name string, factory Factory, opts ...RegisterOption) Descriptor {
	return Describe(name, factory, opts...)
}

// RegisterServices registers multiple descriptors in the order given.
// Returns the first registration error; earlier registrations stay in place.
//
// Example:
//
//	err := keel.RegisterServices(c,
//	    keel.Service("db", NewDatabase),
//	    keel.Service("cache", NewCache),
//	    keel.Service("logger", NewLogger),
//	)
func RegisterServices(c *Container, services ...Descriptor) error {
	for _, svc := range services {
		if err := c.RegisterDescriptor(svc); err != nil {
			return err
		}
	}
	return nil
}

// TypedServiceRegistration holds configuration for a typed service to be registered.
type TypedServiceRegistration[T any] struct {
	Name    string
	Factory func() (T, error)
	Options []RegisterOption
}

// TypedService creates a TypedServiceRegistration for batch typed registration.
func TypedService[T any](name string, factory func() (T, error), opts ...RegisterOption) TypedServiceRegistration[T] {
	return TypedServiceRegistration[T]{
		Name:    name,
		Factory: factory,
		Options: opts,
	}
}

// RegisterTypedServices registers multiple typed services in a single call.
// This version provides type safety for the factory functions.
//
// Example:
//
//	err := keel.RegisterTypedServices(c,
//	    keel.TypedService("primary", NewStore),
//	    keel.TypedService("replica", NewStore, keel.Transient()),
//	)
func RegisterTypedServices[T any](c *Container, services ...TypedServiceRegistration[T]) error {
	for _, svc := range services {
		factory := svc.Factory
		wrappedFactory := func() (any, error) {
			return factory()
		}
		if err := c.Register(svc.Name, wrappedFactory, svc.Options...); err != nil {
			return err
		}
	}
	return nil
}
