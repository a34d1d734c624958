package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/pathwise/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default pathwise config",
		Long:  "Create the .pathwise directory and install a default config.json.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := writeDefaultConfig(cfgFile, force)
			if err != nil {
				return err
			}
			if !written {
				log.Info().Str("path", cfgFile).Msg("config already exists, skipping")
				return nil
			}
			log.Info().Str("path", cfgFile).Msg("installed default config")
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Put your API key in .env (GEMINI_API_KEY=...).\n", cfgFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func writeDefaultConfig(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(config.DefaultSettings(), "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode default config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
