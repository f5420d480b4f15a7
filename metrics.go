package keel

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Result label values.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// MetricsMiddleware records resolutions and builds as Prometheus metrics.
type MetricsMiddleware struct {
	resolutions *prometheus.CounterVec
	builds      *prometheus.CounterVec
	duration    *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetricsMiddleware creates the collectors and registers them with registerer.
func NewMetricsMiddleware(registerer prometheus.Registerer) (*MetricsMiddleware, error) {
	m := &MetricsMiddleware{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keel_resolutions_total",
				Help: "Number of container resolutions by service and result",
			},
			[]string{"service", "result"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keel_builds_total",
				Help: "Number of instances built by service and result",
			},
			[]string{"service", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keel_build_duration_seconds",
				Help:    "Time spent constructing and wiring an instance",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		started: make(map[string]time.Time),
	}

	err := multierr.Combine(
		registerer.Register(m.resolutions),
		registerer.Register(m.builds),
		registerer.Register(m.duration),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// MustMetricsMiddleware is NewMetricsMiddleware that panics on a registration error.
func MustMetricsMiddleware(registerer prometheus.Registerer) *MetricsMiddleware {
	m, err := NewMetricsMiddleware(registerer)
	if err != nil {
		panic(err)
	}

	return m
}

// BeforeResolve implements Middleware.
func (m *MetricsMiddleware) BeforeResolve(context.Context, string) error {
	return nil
}

// AfterResolve implements Middleware.
func (m *MetricsMiddleware) AfterResolve(_ context.Context, name string, _ any, err error) error {
	m.resolutions.WithLabelValues(name, result(err)).Inc()

	return nil
}

// BeforeBuild implements Middleware.
func (m *MetricsMiddleware) BeforeBuild(_ context.Context, name string) error {
	m.mu.Lock()
	m.started[name] = time.Now()
	m.mu.Unlock()

	return nil
}

// AfterBuild implements Middleware.
func (m *MetricsMiddleware) AfterBuild(_ context.Context, name string, _ any, err error) error {
	m.mu.Lock()
	start, ok := m.started[name]
	delete(m.started, name)
	m.mu.Unlock()

	m.builds.WithLabelValues(name, result(err)).Inc()

	if ok {
		m.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}

	return nil
}

func result(err error) string {
	if err != nil {
		return resultError
	}

	return resultSuccess
}
