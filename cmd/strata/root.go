package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"goflare.io/strata/internal/config"
)

type rootOptions struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "strata",
		Short:         "Two-tier cache with an optional shared Redis tier",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load before reading the environment (default .env if present)")

	cmd.AddCommand(newServeCmd(opts), newStatusCmd(opts))
	return cmd
}

// load resolves settings and builds the logger they ask for.
func (o *rootOptions) load() (*config.Settings, *zap.Logger, error) {
	settings, err := config.Load(o.configPath, o.envFiles...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(settings.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return settings, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
