package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xraph/keel"
)

const (
	FlagAddr = "addr"

	shutdownTimeout = 10 * time.Second
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap the core container and serve the demo components",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), addr, logger)
		},
	}

	cmd.Flags().StringVar(&addr, FlagAddr, ":8080", "listen address")

	return cmd
}

func serve(ctx context.Context, addr string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	metrics, err := keel.NewMetricsMiddleware(registry)
	if err != nil {
		return err
	}

	router := chi.NewRouter()

	core, err := bootCore(ctx, router, logger, metrics)
	if err != nil {
		return err
	}

	// Routes go on after Setup: the middleware preparer must see an empty mux.
	hello, err := keel.Resolve[*HelloController](core.Container(), controllerName)
	if err != nil {
		return err
	}

	router.Handle("/hello/{name}", hello)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	core.SetPhase(keel.PhaseServerReady)
	logger.Info("server ready", zap.String("addr", addr), zap.Stringer("phase", core.Phase()))

	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = srv.Shutdown(shutdownCtx)
	}

	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	return multierr.Append(err, core.Container().Close(context.Background()))
}
