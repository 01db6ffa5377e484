package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"goflare.io/strata"
)

// statusProbeKey is read once so a lazily connected remote tier dials before Status is taken.
const statusProbeKey = "strata:status-probe"

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the cache status as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			opts := append(settings.Options, strata.WithLogger(logger))
			cache, err := strata.New[json.RawMessage](ctx, opts...)
			if err != nil {
				return err
			}
			defer cache.Close()

			cache.Get(ctx, statusProbeKey)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cache.Status())
		},
	}
}
