package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/manash/hairtry/internal/server"
)

var flagAddr string

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the try-on session as a JSON HTTP API",
		Long: `Serve one try-on session over HTTP for a browser front end.

The session lives in memory and ends with the process. Bind to a
loopback address unless the network in between is trusted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (defaults to HAIRTRY_ADDR or 127.0.0.1:8080)")

	return cmd
}

func runServe(ctx context.Context, app *App) error {
	rt, err := app.setup()
	if err != nil {
		return err
	}
	ctrl, err := app.newController(ctx, rt)
	if err != nil {
		return err
	}

	addr := flagAddr
	if addr == "" {
		addr = rt.cfg.Addr
	}

	rt.log.Info().Str("model", ctrl.Model()).Int("styles", rt.catalog.Len()).Msg("starting API")
	return server.New(ctrl, app.Registry, rt.log).ListenAndServe(ctx, addr)
}
