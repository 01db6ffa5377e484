package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"goflare.io/strata"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cache over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if addr == "" {
				addr = settings.ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := append(settings.Options, strata.WithLogger(logger))
			return serve(ctx, addr, logger, opts...)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides STRATA_ADDR)")
	return cmd
}

// serve runs the HTTP server until ctx is done, then drains it and disconnects the cache.
func serve(ctx context.Context, addr string, logger *zap.Logger, opts ...strata.Option) error {
	cache, err := strata.New[json.RawMessage](ctx, opts...)
	if err != nil {
		return err
	}
	defer cache.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		strata.NewCollector(cache, "strata"),
	)

	srv := &http.Server{
		Addr:         addr,
		Handler:      newHandler(cache, registry, logger).routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
	cache.Disconnect()

	logger.Info("Server exited")
	return nil
}
