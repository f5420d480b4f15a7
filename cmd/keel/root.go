package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FlagEnvFile  = "env-file"
	FlagLogLevel = "log-level"
	FlagDev      = "dev"

	defaultEnvFile = ".env"
)

type rootOptions struct {
	envFiles []string
	logLevel string
	dev      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "keel [sub-command]",
		Short: "Bootstrap a keel core container",
		Long: `keel brings up the core container, registering the container itself, the logger,
the resolution engine, the HTTP adapter and the prepare services in fixed phases,
then installs a small set of demo components on top.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadEnv(cmd.Flags().Changed(FlagEnvFile))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
	}

	bindRootFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(
		newBootCommand(opts),
		newServeCommand(opts),
	)

	return cmd
}

func bindRootFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.StringSliceVar(&opts.envFiles, FlagEnvFile, []string{defaultEnvFile}, "dotenv files loaded before bootstrap")
	flags.StringVar(&opts.logLevel, FlagLogLevel, "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&opts.dev, FlagDev, false, "human readable development logging")
}

// loadEnv loads the dotenv files. A missing default file is not an error.
func (o *rootOptions) loadEnv(explicit bool) error {
	err := godotenv.Load(o.envFiles...)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}

	return nil
}

func (o *rootOptions) logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if o.dev {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
