package main

import (
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-nextbook/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations and dashboard data over HTTP",
		Long: `Loads the catalog once and serves it until interrupted.

Routes:
  GET /healthz
  GET /metrics
  GET /api/v1/options?by=title|author
  GET /api/v1/recommendations?q=QUERY&by=title|author&n=5
  GET /api/v1/analytics?q=QUERY&by=title|author&n=5&top=10
  GET /api/v1/view?view=recommendations|analytics&q=QUERY&by=title|author&n=5`,
		Example: `  nextbook serve --catalog books.csv --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			override(cmd, "addr", &cfg.Server.Addr, addr)

			cat, _, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			srv, err := server.New(cat, cfg.Recommend)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), cfg.Server)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
