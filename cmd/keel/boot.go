package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xraph/keel"
)

func newBootCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Bootstrap the core container and print its services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			core, err := bootCore(cmd.Context(), chi.NewRouter(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = core.Container().Close(context.Background()) }()

			renderServices(cmd.OutOrStdout(), core)

			return nil
		},
	}
}

// bootCore bootstraps a core, installs the demo components and runs setup.
func bootCore(ctx context.Context, router *chi.Mux, logger *zap.Logger, middleware ...keel.Middleware) (*keel.CoreContainer, error) {
	core := keel.NewCore(
		keel.WithLogger(logger.Named("container")),
		keel.WithMiddleware(middleware...),
	)

	core.OnPhaseChange(func(from, to keel.Phase) {
		logger.Debug("phase changed", zap.Stringer("from", from), zap.Stringer("to", to))
	})

	if err := core.Bootstrap(router, logger); err != nil {
		return nil, err
	}

	if err := core.RegisterComponents(ctx, demoComponents(core.Container())...); err != nil {
		return nil, err
	}

	if err := core.Setup(ctx); err != nil {
		return nil, err
	}

	return core, nil
}

func renderServices(w io.Writer, core *keel.CoreContainer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Service", "Lifecycle", "Type", "Component", "Depends On", "Entries", "Built"})

	for _, info := range keel.Query(core.Container(), keel.ServiceQuery{}) {
		deps := append(append([]string(nil), info.Dependencies...), info.Strategies...)
		t.AppendRow(table.Row{
			info.Name,
			info.Lifecycle,
			info.Type,
			info.ComponentType,
			strings.Join(deps, ", "),
			info.Entries,
			info.Instantiated,
		})
	}

	t.AppendFooter(table.Row{"Phase", core.Phase().String()})

	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	_, _ = fmt.Fprintln(w)
}
