package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/metalagman/pathwise/internal/config"
	"github.com/metalagman/pathwise/internal/crawl"
	"github.com/metalagman/pathwise/internal/job"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/spf13/cobra"
)

func crawlCmd() *cobra.Command {
	var maxPages int
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site into the shared content cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var (
				svc *crawl.Service
				cfg config.Config
			)
			return withApp(ctx, func(ctx context.Context) error {
				if maxPages <= 0 {
					maxPages = cfg.Crawl.MaxPages
				}
				id, err := svc.StartCrawl(ctx, args[0], maxPages)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "crawl %s started\n", id)

				st := job.Poll(ctx, job.New(id, job.KindCrawl), func(ctx context.Context) (job.Status[[]model.Page], error) {
					return svc.CheckCrawlStatus(ctx, id)
				}, job.Options{
					Interval:    cfg.Crawl.PollInterval,
					MaxAttempts: cfg.Crawl.MaxAttempts,
					OnProgress: func(_ int, progress string) {
						fmt.Fprintf(out, "  %s\n", progress)
					},
				})
				if err := st.Err(); err != nil {
					return fmt.Errorf("crawl %s: %w", id, err)
				}
				renderPages(out, st.Result)
				return nil
			}, &svc, &cfg)
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page limit (defaults to crawl.max_pages)")
	return cmd
}

func renderPages(w io.Writer, pages []model.Page) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "URL", "Title", "Chars"})
	total := 0
	for i, p := range pages {
		tw.AppendRow(table.Row{i + 1, p.SourceURL, p.Title, len(p.Body)})
		total += len(p.Body)
	}
	tw.AppendFooter(table.Row{"", "", "Total", total})
	tw.Render()
}
