// Package prepare holds the infrastructure services the core container
// registers at bootstrap and prepares during application setup.
package prepare

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/xraph/go-utils/errs"
	"go.uber.org/zap"

	"github.com/xraph/keel/di"
)

// ErrAlreadyPrepared is returned when a service is changed after Prepare ran.
var ErrAlreadyPrepared = errs.NewError(errs.CodeConflict, "prepare: service already prepared", nil)

// Middleware installs the default request middleware on the adapter, followed
// by whatever was queued with Add.
type Middleware struct {
	Adapter di.Adapter
	Logger  di.Logger

	mu       sync.Mutex
	queued   []func(http.Handler) http.Handler
	prepared bool
}

// Add queues middleware to install after the defaults.
func (m *Middleware) Add(middlewares ...func(http.Handler) http.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.prepared {
		return ErrAlreadyPrepared
	}

	m.queued = append(m.queued, middlewares...)

	return nil
}

// Prepare installs request ids, real client addresses, request logging and
// panic recovery, then the queued middleware.
func (m *Middleware) Prepare(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.prepared {
		return nil
	}

	m.Adapter.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(m.Logger),
		middleware.Recoverer,
	)

	if len(m.queued) > 0 {
		m.Adapter.Use(m.queued...)
	}

	m.prepared = true
	m.Logger.Info("http middleware prepared", zap.Int("custom", len(m.queued)))

	return nil
}

// RequestLogger logs one line per request. Server errors log at error level,
// client errors at warn.
func RequestLogger(logger di.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}

				switch {
				case status >= http.StatusInternalServerError:
					logger.Error("request", fields...)
				case status >= http.StatusBadRequest:
					logger.Warn("request", fields...)
				default:
					logger.Info("request", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
