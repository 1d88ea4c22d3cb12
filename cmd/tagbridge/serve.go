package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tap30/tagmanager-go/bridge"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "HTTP listen address, e.g. :8080")
	cmd.Flags().String("allowed-origins", "", "comma-separated origins allowed to connect")
	cmd.Flags().String("load-timeout", "", "container load bound, e.g. 2s")
	cmd.Flags().String("collector-endpoint", "", "URL receiving hit batches")
	cmd.Flags().String("container-endpoint", "", "base URL serving /containers/{id}")
	cmd.Flags().String("resource-dir", "", "directory holding default containers")
	cmd.Flags().String("storage-path", "", "file persisting undelivered hits")
	cmd.Flags().Int("max-batch-size", 0, "hits per batch")
	cmd.Flags().Int("max-retries", 0, "delivery retries per batch")
	cmd.Flags().String("api-key", "", "API key sent to the collector")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, "tagbridge")
	bridge.SetLogger(logger.Logger())

	rt, err := newRuntime(cfg, logger, bridge.NewMetrics())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           bridge.NewServer(rt.plugin, bridge.Options{AllowedOrigins: cfg.AllowedOrigins}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		logger.Info("bridge listening", map[string]any{"addr": cfg.Addr, "collector": cfg.CollectorEndpoint})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown error: %v", err)
		}
		return nil
	})

	err = g.Wait()
	if cerr := rt.Close(); cerr != nil {
		logger.Error("failed to persist hits: %v", cerr)
	}
	return err
}
