package keel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container stores component descriptors and resolves object graphs from them.
//
// Singletons are built once per registration and cached; transients are
// built, together with their dependency subtree, on every resolve. A name may
// hold several registrations, in which case it resolves to a []any in
// registration order.
type Container struct {
	id         string
	entries    map[string][]*entry
	order      []string // first-registration order of names
	registry   []*entry // every entry in registration order
	detector   *CycleDetector
	middleware *middlewareChain
	logger     *zap.Logger
	closed     bool

	mu        sync.RWMutex // guards the entry table and built instances
	resolving sync.Mutex   // one resolution tree at a time; owns detector
}

// entry is one registration under a name.
type entry struct {
	desc     Descriptor
	instance any
	built    bool
	owned    bool // instance was produced by the factory, not handed in
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		id:         uuid.NewString(),
		entries:    make(map[string][]*entry),
		detector:   NewCycleDetector(),
		middleware: newMiddlewareChain(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// ID returns the container's unique id, used to correlate log lines.
func (c *Container) ID() string {
	return c.id
}

// Use adds middleware to the container.
// Middleware is called in the order they are added.
func (c *Container) Use(middleware Middleware) {
	c.resolving.Lock()
	defer c.resolving.Unlock()
	c.middleware.add(middleware)
}

// Register adds a component. If name already holds registrations the new one
// is appended after them.
//
// Singletons (the default) are built immediately, which resolves their whole
// dependency subgraph: every dependency must already be registered. If the
// build fails the registration is withdrawn and the error returned.
func (c *Container) Register(name string, factory Factory, opts ...RegisterOption) error {
	return c.RegisterDescriptor(Describe(name, factory, opts...))
}

// RegisterDescriptor is Register for a pre-built descriptor.
func (c *Container) RegisterDescriptor(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	c.resolving.Lock()
	defer c.resolving.Unlock()

	e := &entry{desc: d.clone()}
	if err := c.add(e); err != nil {
		return err
	}

	if !d.IsSingleton() {
		return nil
	}

	if _, err := c.instantiate(context.Background(), e); err != nil {
		c.remove(e)

		return err
	}

	return nil
}

// Declare adds a component without building it, even when it is a singleton.
// Declared singletons are built on first resolve or by Warm, so they may be
// declared before their dependencies.
func (c *Container) Declare(name string, factory Factory, opts ...RegisterOption) error {
	d := Describe(name, factory, opts...)
	if err := d.Validate(); err != nil {
		return err
	}

	return c.add(&entry{desc: d.clone()})
}

// RegisterInstance adds a pre-built singleton. The instance is never wired;
// only WithComponentType and WithMetadata options have an effect.
func (c *Container) RegisterInstance(name string, instance any, opts ...RegisterOption) error {
	if name == "" {
		return fmt.Errorf("%w: service name cannot be empty", ErrInvalidDescriptorSentinel)
	}

	if isNil(instance) {
		return ErrInvalidDescriptor(name, "instance cannot be nil")
	}

	d := Describe(name, func() (any, error) { return instance, nil }, opts...)
	d.Lifecycle = LifecycleSingleton
	d.Dependencies = nil
	d.Strategies = nil

	return c.add(&entry{desc: d.clone(), instance: instance, built: true})
}

// Resolve returns the instance registered under name, or a []any when name
// holds several registrations.
func (c *Container) Resolve(name string) (any, error) {
	return c.ResolveContext(context.Background(), name)
}

// ResolveContext is Resolve with a context passed to middleware.
func (c *Container) ResolveContext(ctx context.Context, name string) (any, error) {
	c.resolving.Lock()
	defer c.resolving.Unlock()

	if c.isClosed() {
		return nil, ErrContainerClosed
	}

	return c.resolveName(ctx, name)
}

// GetAll resolves every registration tagged with componentType: one instance,
// or a []any for names with several matching registrations, per name in
// registration order. Registrations yielding no instance are skipped; no
// match yields an empty slice.
func (c *Container) GetAll(componentType string) ([]any, error) {
	c.resolving.Lock()
	defer c.resolving.Unlock()

	if c.isClosed() {
		return nil, ErrContainerClosed
	}

	type match struct {
		name    string
		entries []*entry
	}

	var matches []match

	c.mu.RLock()
	for _, name := range c.order {
		var matched []*entry
		for _, e := range c.entries[name] {
			if e.desc.ComponentType == componentType {
				matched = append(matched, e)
			}
		}

		if len(matched) > 0 {
			matches = append(matches, match{name: name, entries: matched})
		}
	}
	c.mu.RUnlock()

	ctx := context.Background()
	result := make([]any, 0, len(matches))

	for _, m := range matches {
		instance, err := c.resolveEntries(ctx, m.name, m.entries)
		if errors.Is(err, ErrEmptyInstanceListSentinel) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if instance != nil {
			result = append(result, instance)
		}
	}

	return result, nil
}

// Warm builds every singleton that has not been built yet, dependencies
// first. Independent failures are collected and returned together.
func (c *Container) Warm(ctx context.Context) error {
	c.resolving.Lock()
	defer c.resolving.Unlock()

	if c.isClosed() {
		return ErrContainerClosed
	}

	graph := NewDependencyGraph()

	c.mu.RLock()
	for _, name := range c.order {
		var keys []string
		for _, e := range c.entries[name] {
			for _, key := range e.desc.Keys() {
				if !slices.Contains(keys, key) {
					keys = append(keys, key)
				}
			}
		}

		graph.AddNode(name, keys)
	}
	c.mu.RUnlock()

	order, err := graph.TopologicalSort()
	if err != nil {
		return err
	}

	var errs error

	for _, name := range order {
		for _, e := range c.lookup(name) {
			if !e.desc.IsSingleton() || e.built {
				continue
			}

			if _, err := c.instantiate(ctx, e); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}

	return errs
}

// Has checks if a name is registered.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries[name]) > 0
}

// Services returns all registered names in first-registration order.
func (c *Container) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.order)
}

// Inspect returns diagnostic information about a name.
func (c *Container) Inspect(name string) ServiceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := c.entries[name]
	if len(entries) == 0 {
		return ServiceInfo{Name: name}
	}

	first := entries[0].desc
	info := ServiceInfo{
		Name:          name,
		Type:          "unknown",
		Lifecycle:     first.Lifecycle.String(),
		ComponentType: first.ComponentType,
		Entries:       len(entries),
		Metadata:      make(map[string]string),
	}

	for _, e := range entries {
		for _, dep := range e.desc.Dependencies {
			if !slices.Contains(info.Dependencies, dep.Key) {
				info.Dependencies = append(info.Dependencies, dep.Key)
			}
		}

		for _, s := range e.desc.Strategies {
			if s.Interface != "" && !slices.Contains(info.Strategies, s.Interface) {
				info.Strategies = append(info.Strategies, s.Interface)
			}
		}

		for k, v := range e.desc.Metadata {
			info.Metadata[k] = v
		}

		if e.built {
			info.Instantiated = true
			if info.Type == "unknown" && e.instance != nil {
				info.Type = fmt.Sprintf("%T", e.instance)
			}
		}
	}

	return info
}

// Close releases every singleton the container built, in reverse
// registration order. A Stopper is stopped with ctx; otherwise a Disposable
// is disposed. Instances handed in through RegisterInstance belong to
// the caller and are left alone. After Close every operation fails with
// ErrContainerClosed.
func (c *Container) Close(ctx context.Context) error {
	c.resolving.Lock()
	defer c.resolving.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	registry := slices.Clone(c.registry)
	c.mu.Unlock()

	var errs error

	for i := len(registry) - 1; i >= 0; i-- {
		e := registry[i]
		if !e.built || !e.owned || e.instance == nil {
			continue
		}

		switch instance := e.instance.(type) {
		case Stopper:
			if err := instance.Stop(ctx); err != nil {
				errs = multierr.Append(errs, NewServiceError(e.desc.Name, "stop", err))
			}
		case Disposable:
			if err := instance.Dispose(); err != nil {
				errs = multierr.Append(errs, NewServiceError(e.desc.Name, "dispose", err))
			}
		}
	}

	c.logger.Debug("container closed",
		zap.String("container", c.id),
		zap.Int("services", len(registry)),
		zap.Error(errs),
	)

	return errs
}

// resolveName resolves a name inside a resolution tree.
func (c *Container) resolveName(ctx context.Context, name string) (any, error) {
	if err := c.middleware.beforeResolve(ctx, name); err != nil {
		return nil, err
	}

	var (
		instance any
		err      error
	)

	entries := c.lookup(name)
	if len(entries) == 0 {
		err = ErrServiceNotFound(name)
	} else {
		instance, err = c.resolveEntries(ctx, name, entries)
	}

	if mwErr := c.middleware.afterResolve(ctx, name, instance, err); mwErr != nil {
		return nil, mwErr
	}

	return instance, err
}

// resolveEntries resolves one or several registrations of the same name.
func (c *Container) resolveEntries(ctx context.Context, name string, entries []*entry) (any, error) {
	if len(entries) == 1 {
		return c.instantiate(ctx, entries[0])
	}

	list := make([]any, 0, len(entries))

	for _, e := range entries {
		instance, err := c.instantiate(ctx, e)
		if err != nil {
			return nil, err
		}

		if instance != nil {
			list = append(list, instance)
		}
	}

	if len(list) == 0 {
		return nil, ErrEmptyInstanceList(name)
	}

	return list, nil
}

// instantiate returns the cached singleton or builds a new instance.
func (c *Container) instantiate(ctx context.Context, e *entry) (any, error) {
	if e.desc.IsSingleton() && e.built {
		return e.instance, nil
	}

	instance, err := c.build(ctx, e)
	if err != nil {
		return nil, err
	}

	if e.desc.IsSingleton() {
		c.mu.Lock()
		e.instance = instance
		e.built = true
		e.owned = true
		c.mu.Unlock()
	}

	return instance, nil
}

// build runs the factory and wires the result. The name stays on the
// detector stack while its dependencies are resolved and is popped on every
// return path, so a failed branch leaves the stack as it found it.
func (c *Container) build(ctx context.Context, e *entry) (any, error) {
	name := e.desc.Name

	if err := c.detector.Check(name); err != nil {
		return nil, err
	}

	c.detector.Push(name)
	defer c.detector.Pop(name)

	if err := c.middleware.beforeBuild(ctx, name); err != nil {
		return nil, err
	}

	instance, err := c.construct(ctx, e.desc)

	if mwErr := c.middleware.afterBuild(ctx, name, instance, err); mwErr != nil {
		return nil, mwErr
	}

	if err != nil {
		c.logger.Debug("service build failed",
			zap.String("container", c.id),
			zap.String("service", name),
			zap.Error(err),
		)

		return nil, err
	}

	c.logger.Debug("service built",
		zap.String("container", c.id),
		zap.String("service", name),
		zap.Stringer("lifecycle", e.desc.Lifecycle),
		zap.Bool("empty", instance == nil),
	)

	return instance, nil
}

// construct creates a bare instance and assigns its dependencies and strategies.
func (c *Container) construct(ctx context.Context, d Descriptor) (any, error) {
	instance, err := d.Factory()
	if err != nil {
		return nil, NewServiceError(d.Name, "construct", err)
	}

	if isNil(instance) {
		return nil, nil
	}

	if len(d.Dependencies) == 0 && len(d.Strategies) == 0 {
		return instance, nil
	}

	target := reflect.ValueOf(instance)
	if target.Kind() != reflect.Pointer || target.Elem().Kind() != reflect.Struct {
		return nil, NewServiceError(d.Name, "inject",
			fmt.Errorf("cannot inject fields into %T: want a pointer to a struct", instance))
	}

	target = target.Elem()

	for _, dep := range d.Dependencies {
		if err := c.wire(ctx, d.Name, target, dep.Field, dep.Key); err != nil {
			return nil, err
		}
	}

	for _, s := range d.Strategies {
		if s.Interface == "" {
			continue
		}

		if err := c.wire(ctx, d.Name, target, s.Field, s.Interface); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// wire resolves key and assigns it to field.
func (c *Container) wire(ctx context.Context, service string, target reflect.Value, field, key string) error {
	if !c.Has(key) {
		return ErrMissingDependency(service, field, key)
	}

	value, err := c.resolveName(ctx, key)
	if err != nil {
		return err
	}

	if isNil(value) {
		return ErrMissingDependency(service, field, key)
	}

	return assignField(service, target, field, value)
}

// lookup returns a snapshot of the registrations under name.
func (c *Container) lookup(name string) []*entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.entries[name])
}

// add appends an entry to the table.
func (c *Container) add(e *entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrContainerClosed
	}

	name := e.desc.Name
	if _, exists := c.entries[name]; !exists {
		c.order = append(c.order, name)
	}

	c.entries[name] = append(c.entries[name], e)
	c.registry = append(c.registry, e)

	c.logger.Debug("service registered",
		zap.String("container", c.id),
		zap.String("service", name),
		zap.Stringer("lifecycle", e.desc.Lifecycle),
		zap.Int("entries", len(c.entries[name])),
	)

	return nil
}

// remove withdraws an entry whose eager build failed.
func (c *Container) remove(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := e.desc.Name
	isTarget := func(other *entry) bool { return other == e }

	c.entries[name] = slices.DeleteFunc(c.entries[name], isTarget)
	if len(c.entries[name]) == 0 {
		delete(c.entries, name)
		c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	}

	c.registry = slices.DeleteFunc(c.registry, isTarget)
}

func (c *Container) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closed
}

// assignField stores value in the exported field of target. Slice fields
// accept a multi-registration []any or a single element.
func assignField(service string, target reflect.Value, field string, value any) error {
	fv := target.FieldByName(field)
	if !fv.IsValid() {
		return NewServiceError(service, "inject", fmt.Errorf("%s has no field %q", target.Type(), field))
	}

	if !fv.CanSet() {
		return NewServiceError(service, "inject", fmt.Errorf("field %q of %s is not exported", field, target.Type()))
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(fv.Type()) {
		fv.Set(val)

		return nil
	}

	if fv.Kind() != reflect.Slice {
		return ErrFieldMismatch(service, field, fv.Type(), value)
	}

	elem := fv.Type().Elem()

	if list, ok := value.([]any); ok {
		out := reflect.MakeSlice(fv.Type(), 0, len(list))

		for _, item := range list {
			iv := reflect.ValueOf(item)
			if !iv.Type().AssignableTo(elem) {
				return ErrFieldMismatch(service, field, fv.Type(), item)
			}

			out = reflect.Append(out, iv)
		}

		fv.Set(out)

		return nil
	}

	if val.Type().AssignableTo(elem) {
		out := reflect.MakeSlice(fv.Type(), 0, 1)
		fv.Set(reflect.Append(out, val))

		return nil
	}

	return ErrFieldMismatch(service, field, fv.Type(), value)
}

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
