// Package keel is a component container with eager singletons, transient
// components, strategy injection and cycle detection, plus a core container
// that bootstraps infrastructure services in fixed phases before user
// components are installed.
package keel

import (
	godi "github.com/xraph/go-utils/di"

	"github.com/xraph/keel/di"
)

// Logger is the logging handle given to the core at bootstrap.
type Logger = di.Logger

// Adapter is the HTTP adapter handle given to the core at bootstrap.
type Adapter = di.Adapter

// Preparer is implemented by services set up during CoreContainer.Setup.
type Preparer = di.Preparer

// Disposable is implemented by singletons released on Container.Close.
type Disposable = godi.Disposable

// Stopper is implemented by singletons that need ctx to shut down. Close
// prefers Stop over Dispose.
type Stopper = godi.Stopper

// ServiceInfo contains diagnostic information about a registered name.
type ServiceInfo struct {
	Name          string
	Type          string
	Lifecycle     string
	ComponentType string
	Dependencies  []string
	Strategies    []string
	Entries       int
	Instantiated  bool
	Metadata      map[string]string
}
