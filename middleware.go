package keel

import "context"

// Middleware provides hooks for intercepting container operations.
// Middleware can be used for logging, metrics, security, testing, etc.
//
// Hooks run inside a resolution tree while the container is locked, so they
// must not call back into the container.
type Middleware interface {
	// BeforeResolve is called before resolving a name, including nested
	// dependency resolutions. Return error to abort resolution.
	BeforeResolve(ctx context.Context, name string) error

	// AfterResolve is called after resolving a name.
	// Called even if resolution failed (service and err may both be set).
	AfterResolve(ctx context.Context, name string, service any, err error) error

	// BeforeBuild is called before a factory runs for a name.
	// Return error to abort construction.
	BeforeBuild(ctx context.Context, name string) error

	// AfterBuild is called once the instance is constructed and wired.
	// Called even if construction failed.
	AfterBuild(ctx context.Context, name string, instance any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{
		middleware: make([]Middleware, 0),
	}
}

// add appends middleware to the chain.
func (m *middlewareChain) add(middleware Middleware) {
	if middleware == nil {
		return
	}
	m.middleware = append(m.middleware, middleware)
}

// beforeResolve calls BeforeResolve on all middleware.
func (m *middlewareChain) beforeResolve(ctx context.Context, name string) error {
	for _, mw := range m.middleware {
		if err := mw.BeforeResolve(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// afterResolve calls AfterResolve on all middleware.
func (m *middlewareChain) afterResolve(ctx context.Context, name string, service any, err error) error {
	for _, mw := range m.middleware {
		if mwErr := mw.AfterResolve(ctx, name, service, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// beforeBuild calls BeforeBuild on all middleware.
func (m *middlewareChain) beforeBuild(ctx context.Context, name string) error {
	for _, mw := range m.middleware {
		if err := mw.BeforeBuild(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// afterBuild calls AfterBuild on all middleware.
func (m *middlewareChain) afterBuild(ctx context.Context, name string, instance any, err error) error {
	for _, mw := range m.middleware {
		if mwErr := mw.AfterBuild(ctx, name, instance, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeResolveFunc func(ctx context.Context, name string) error
	AfterResolveFunc  func(ctx context.Context, name string, service any, err error) error
	BeforeBuildFunc   func(ctx context.Context, name string) error
	AfterBuildFunc    func(ctx context.Context, name string, instance any, err error) error
}

// BeforeResolve implements Middleware.
func (f *FuncMiddleware) BeforeResolve(ctx context.Context, name string) error {
	if f.BeforeResolveFunc != nil {
		return f.BeforeResolveFunc(ctx, name)
	}
	return nil
}

// AfterResolve implements Middleware.
func (f *FuncMiddleware) AfterResolve(ctx context.Context, name string, service any, err error) error {
	if f.AfterResolveFunc != nil {
		return f.AfterResolveFunc(ctx, name, service, err)
	}
	return nil
}

// BeforeBuild implements Middleware.
func (f *FuncMiddleware) BeforeBuild(ctx context.Context, name string) error {
	if f.BeforeBuildFunc != nil {
		return f.BeforeBuildFunc(ctx, name)
	}
	return nil
}

// AfterBuild implements Middleware.
func (f *FuncMiddleware) AfterBuild(ctx context.Context, name string, instance any, err error) error {
	if f.AfterBuildFunc != nil {
		return f.AfterBuildFunc(ctx, name, instance, err)
	}
	return nil
}
