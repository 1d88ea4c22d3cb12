package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Tap30/tagmanager-go/internal/collector"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCollectorCmd() *cobra.Command {
	var (
		addr       string
		containers []string
	)
	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Run a development hit collector and container server",
		Long: `Run a development stand-in for the tag-management service.

Hits are accepted on POST /hits. Containers given with --container
ID=path.json are served on GET /containers/{id}. A hit whose payload has
"trigger_error": true is answered with 500.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, "collector")

			c := collector.New(collector.Options{APIKey: cfg.APIKey, Logger: logger.Logger()})
			for _, spec := range containers {
				id, path, ok := strings.Cut(spec, "=")
				if !ok {
					return fmt.Errorf("invalid --container %q, want ID=path.json", spec)
				}
				body, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if !json.Valid(body) {
					return fmt.Errorf("container %s: %s is not valid JSON", id, path)
				}
				version := time.Now().UTC().Format("20060102150405")
				if st, err := os.Stat(path); err == nil {
					version = st.ModTime().UTC().Format("20060102150405")
				}
				c.PublishContainer(id, version, body)
			}

			srv := &http.Server{Addr: addr, Handler: c.Handler(), ReadHeaderTimeout: 10 * time.Second}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				logger.Info("collector listening", map[string]any{"addr": addr, "containers": len(containers)})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "HTTP listen address")
	cmd.Flags().StringArrayVar(&containers, "container", nil, "publish a container, ID=path.json (repeatable)")
	cmd.Flags().String("api-key", "", "require this X-API-Key on every request")
	return cmd
}
