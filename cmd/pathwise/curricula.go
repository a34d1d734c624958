package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/metalagman/pathwise/internal/curriculum"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func curriculaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "curricula",
		Aliases: []string{"paths"},
		Short:   "Browse generated learning paths",
	}
	cmd.AddCommand(curriculaListCmd(), curriculaShowCmd())
	return cmd
}

func curriculaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generated learning paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var store *curriculum.Store
			return withApp(cmd.Context(), func(ctx context.Context) error {
				recs, err := store.List(ctx)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Goal", "Title", "Modules", "Created"})
				for _, r := range recs {
					tw.AppendRow(table.Row{r.ID, r.Goal, r.Curriculum.Title, len(r.Curriculum.Modules), r.CreatedAt.Local().Format("2006-01-02 15:04")})
				}
				tw.Render()
				return nil
			}, &store)
		},
	}
}

func curriculaShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a learning path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var store *curriculum.Store
			return withApp(cmd.Context(), func(ctx context.Context) error {
				rec, err := store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return writeRecord(cmd.OutOrStdout(), rec, format)
			}, &store)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or yaml")
	return cmd
}

func writeRecord(w io.Writer, rec curriculum.Record, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		writeOutline(w, rec)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeOutline(w io.Writer, rec curriculum.Record) {
	c := rec.Curriculum
	fmt.Fprintf(w, "%s\n%s\n", c.Title, c.Summary)
	for i, m := range c.Modules {
		fmt.Fprintf(w, "\n%d. %s (%gh)\n   %s\n", i+1, m.Title, m.Hours, m.Objective)
		for _, l := range m.Lessons {
			fmt.Fprintf(w, "   - %s: %s\n", l.Title, l.Description)
			for _, r := range l.Resources {
				fmt.Fprintf(w, "     %s\n", r)
			}
		}
	}
}
