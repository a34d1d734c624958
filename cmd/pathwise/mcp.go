package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/metalagman/pathwise/internal/mcpserver"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the planner as MCP tools over stdio",
		Long:  "Serve the planner as MCP tools over stdio. Logs go to stderr so stdout stays a clean transport.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var srv *mcpserver.Server
			return withApp(ctx, func(ctx context.Context) error {
				return srv.Run(ctx)
			}, &srv)
		},
	}
}
