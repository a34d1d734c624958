package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/metalagman/pathwise/internal/config"
	"github.com/metalagman/pathwise/internal/content"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Inspect the shared content cache",
	}
	cmd.AddCommand(contextListCmd(), contextShowCmd(), contextPruneCmd())
	return cmd
}

func contextListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var store *content.Store
			return withApp(cmd.Context(), func(ctx context.Context) error {
				entries, err := store.List(ctx)
				if err != nil {
					return err
				}
				renderEntries(cmd.OutOrStdout(), entries)
				return nil
			}, &store)
		},
	}
}

func renderEntries(w io.Writer, entries []content.Entry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Source", "Chars", "Retrieved"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.SourceID, e.Size, e.RetrievedAt.Local().Format("2006-01-02 15:04")})
	}
	tw.Render()
}

func contextShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <url>",
		Short: "Print a cached body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var store *content.Store
			return withApp(cmd.Context(), func(ctx context.Context) error {
				rc, ok, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is not cached", args[0])
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rc.Body)
				return err
			}, &store)
		},
	}
}

func contextPruneCmd() *cobra.Command {
	var (
		keepLast int
		keepDays int
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached sources outside the retention policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				store *content.Store
				cfg   config.Config
			)
			return withApp(cmd.Context(), func(ctx context.Context) error {
				policy := content.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
				if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
					policy = content.RetentionPolicy{KeepLast: cfg.Retention.KeepLast, KeepDays: cfg.Retention.KeepDays}
				}
				if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
					return fmt.Errorf("set --keep-last or --keep-days (or configure retention in %s)", config.DefaultPath)
				}
				res, err := store.Prune(ctx, policy, dryRun)
				if err != nil {
					return err
				}
				mode := "deleted"
				if dryRun {
					mode = "would delete"
				}
				log.Info().Msgf("%s %d cached sources (kept %d of %d)", mode, res.Deleted, res.Kept, res.Considered)
				return nil
			}, &store, &cfg)
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N sources")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep sources newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
