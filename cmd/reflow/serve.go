package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/internal/config"
	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/server"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

func serveCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the project's pages over HTTP",
		Long: `Serve the JSON page documents under <dir>/pages.

Each document renders server-side with its own state store; the /live
endpoint upgrades to WebSocket for patch streaming.

Examples:
  reflow serve
  reflow serve ./site --address :3000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runServe(dir, address)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (default from reflow.yaml)")

	return cmd
}

func runServe(dir, address string) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Server.Address = address
	}

	pages, err := loadPages(dir)
	if err != nil {
		return err
	}

	var opts []server.ServerOption
	if cfg.Server.Metrics {
		opts = append(opts, server.WithMetrics(server.NewMetrics(nil)))
	}

	srv := server.New(&server.Config{
		Address:    cfg.Server.Address,
		SessionTTL: cfg.Server.SessionTTL.Std(),
	}, view.NewRegistry(), opts...)

	for _, p := range pages {
		p := p
		srv.HandlePage(p.Route, func(_ *http.Request, s *state.Store) render.Page {
			for k, v := range p.State {
				s.Set(k, v)
			}
			return render.Page{Title: p.Title, Lang: p.Lang, Body: p.Body}
		})
		info("page %s", p.Route)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	success("serving on %s", cfg.Server.Address)
	return srv.ListenAndServe(ctx)
}
