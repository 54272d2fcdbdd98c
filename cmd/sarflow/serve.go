package main

import (
	"github.com/spf13/cobra"

	"sarflow/internal/pipeline/handler"
	"sarflow/internal/platform/config"
	"sarflow/internal/platform/httpserver"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the case pipeline over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(ctx, cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.log.Error("close audit trail", "error", err)
				}
			}()

			h := handler.New(a.pipeline, a.trail, a.log, a.metrics, a.registry, cfg.Server.RequestTimeout)
			srv := httpserver.New(cfg.Server.Addr, h.Router())
			return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, a.log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
