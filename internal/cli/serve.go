package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockforge/blockforge/internal/api"
	bfio "github.com/blockforge/blockforge/pkg/io"
	"github.com/blockforge/blockforge/pkg/observability/prom"
	"github.com/blockforge/blockforge/pkg/scene"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command, which exposes one project over
// HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr string
		save bool
	)

	cmd := &cobra.Command{
		Use:   "serve [project.json]",
		Short: "Serve a project over HTTP with Prometheus metrics",
		Long: `Serve loads a project (or starts an empty one) and exposes its commands and
queries as a JSON API. Prometheus metrics are served at /metrics.

With --save the project is written back to its file on shutdown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, path, err := c.serveProject(ctx, args)
			if err != nil {
				return err
			}

			collector, err := prom.NewCollector(nil)
			if err != nil {
				return err
			}
			collector.Install()

			s := api.New(p, api.WithLogger(c.Logger), api.WithMetrics(collector.Handler()))
			srv := &http.Server{
				Addr:              addr,
				Handler:           s.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()
			c.Logger.Info("serving project", "addr", addr, "instances", p.InstanceCount())
			printNextStep("Metrics", "curl http://localhost"+addr+"/metrics")

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			c.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				c.Logger.Warn("shutdown", "error", err)
			}

			if !save || path == "" {
				return nil
			}
			err = s.Project(func(p *scene.Project) error { return bfio.ExportJSON(p, path) })
			if err != nil {
				return err
			}
			printSuccess("Saved project")
			printFile(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&save, "save", false, "write the project back to its file on shutdown")
	return cmd
}

// serveProject loads the project named in args, or creates an empty one
// when args is empty or the file does not exist yet.
func (c *CLI) serveProject(ctx context.Context, args []string) (*scene.Project, string, error) {
	var path string
	if len(args) == 1 {
		path = args[0]
		if _, err := os.Stat(path); err == nil {
			p, err := c.openProject(ctx, path)
			return p, path, err
		}
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, "", err
	}
	p, err := scene.New(cfg, nil, scene.WithLogger(c.Logger))
	return p, path, err
}
