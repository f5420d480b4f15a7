package prepare

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/go-utils/errs"
	"go.uber.org/zap"

	"github.com/xraph/keel/di"
)

// WebSocket collects websocket endpoints and mounts them on the adapter.
// Framing is left to the handlers; only the upgrade handshake is enforced.
type WebSocket struct {
	Adapter di.Adapter
	Logger  di.Logger

	mu        sync.Mutex
	endpoints map[string]http.Handler
	prepared  bool
}

// Handle adds an endpoint. After Prepare the endpoint is mounted immediately.
func (w *WebSocket) Handle(pattern string, handler http.Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.endpoints[pattern]; exists {
		return errs.ErrAlreadyExists("websocket endpoint " + pattern)
	}

	if w.endpoints == nil {
		w.endpoints = make(map[string]http.Handler)
	}

	w.endpoints[pattern] = handler

	if w.prepared {
		w.mount(pattern, handler)
	}

	return nil
}

// Endpoints returns the registered patterns, sorted.
func (w *WebSocket) Endpoints() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Sorted(maps.Keys(w.endpoints))
}

// Prepare mounts every endpoint collected so far.
func (w *WebSocket) Prepare(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.prepared {
		return nil
	}

	for _, pattern := range slices.Sorted(maps.Keys(w.endpoints)) {
		w.mount(pattern, w.endpoints[pattern])
	}

	w.prepared = true
	w.Logger.Info("websocket endpoints prepared", zap.Int("endpoints", len(w.endpoints)))

	return nil
}

func (w *WebSocket) mount(pattern string, handler http.Handler) {
	w.Adapter.Handle(pattern, UpgradeOnly(handler))
}

// UpgradeOnly rejects requests that do not ask for a websocket upgrade with
// 426 Upgrade Required.
func UpgradeOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !IsUpgrade(r) {
			rw.Header().Set("Upgrade", "websocket")
			http.Error(rw, http.StatusText(http.StatusUpgradeRequired), http.StatusUpgradeRequired)

			return
		}

		next.ServeHTTP(rw, r)
	})
}

// IsUpgrade reports whether r is a websocket upgrade request.
func IsUpgrade(r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}

	for _, v := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "upgrade") {
			return true
		}
	}

	return false
}
