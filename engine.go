package keel

import (
	"context"

	"go.uber.org/zap"
)

// Engine installs user components into a container. The core registers one
// bound to its own container under EngineKey.
type Engine struct {
	Container *Container
	Logger    Logger
}

// Install registers a batch of descriptors ordered so that every descriptor
// comes after the descriptors in the batch it depends on. Eager singletons
// therefore find their dependencies regardless of input order. Dependencies
// outside the batch must already be registered.
func (e *Engine) Install(ctx context.Context, descriptors ...Descriptor) error {
	if e.Container == nil {
		return ErrEngineUnbound
	}

	graph := NewDependencyGraph()
	byName := make(map[string][]Descriptor)

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return err
		}

		byName[d.Name] = append(byName[d.Name], d)
		graph.AddNode(d.Name, d.Keys())
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		e.logger().Error("component install order has a cycle", zap.Error(err))

		return err
	}

	for _, name := range order {
		for _, d := range byName[name] {
			if err := e.Container.RegisterDescriptor(d); err != nil {
				e.logger().Error("component install failed",
					zap.String("service", name),
					zap.Error(err),
				)

				return err
			}
		}
	}

	e.logger().Info("components installed", zap.Int("count", len(descriptors)))

	return nil
}

// Resolve resolves a component from the bound container.
func (e *Engine) Resolve(ctx context.Context, name string) (any, error) {
	if e.Container == nil {
		return nil, ErrEngineUnbound
	}

	return e.Container.ResolveContext(ctx, name)
}

func (e *Engine) logger() Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}

	return e.Logger
}
