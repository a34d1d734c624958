package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/metalagman/pathwise/internal/app"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runApp(ctx, cfg, func(ctx context.Context) error {
				log.Info().Str("addr", cfg.Server.Addr).Msg("serving")
				<-ctx.Done()
				log.Info().Msg("shutting down")
				return nil
			}, app.HTTP())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
