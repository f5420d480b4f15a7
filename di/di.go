// Package di holds the keel-specific contracts shared between the container
// and the collaborators it hands instances to. Lifecycle contracts come from
// github.com/xraph/go-utils/di.
package di

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Logger is the logging handle passed to the core at bootstrap.
// *zap.Logger satisfies it.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Adapter is the HTTP adapter handle. The container never inspects it; only
// prepare services use it to mount middleware and routes.
// *chi.Mux satisfies it.
type Adapter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
	Handle(pattern string, handler http.Handler)
}

// Preparer is implemented by infrastructure services that need a setup pass
// after all core services are registered.
type Preparer interface {
	Prepare(ctx context.Context) error
}
