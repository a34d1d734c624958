package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/metalagman/pathwise/internal/app"
	"github.com/metalagman/pathwise/internal/config"
	"github.com/metalagman/pathwise/internal/logging"
	"github.com/metalagman/pathwise/internal/telemetry"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	debug   bool
	rootCmd = &cobra.Command{
		Use:           "pathwise",
		Short:         "pathwise turns a planning chat into learning paths",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	app.Version = version
	telemetry.Version = version
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logging.Init(debug)
		return loadDotEnv()
	}
	rootCmd.AddCommand(
		initCmd(),
		chatCmd(),
		serveCmd(),
		mcpCmd(),
		crawlCmd(),
		contextCmd(),
		curriculaCmd(),
	)
	return rootCmd.Execute()
}

// loadDotEnv reads API keys from .env when present. Variables already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
