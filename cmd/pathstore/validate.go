package main

import (
	"fmt"

	"github.com/jpalmerr/pathstore/config"
	"github.com/spf13/cobra"
)

// validateCmd checks a configuration file without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a pathstore configuration file.

Parses the YAML, applies environment variable substitution and checks the
port range and every watch path. Exits non-zero if the config is invalid.

Example:
  pathstore validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cmd.Printf("config OK: port=%d watch_paths=%d\n", cfg.Port, len(cfg.Watch))
	return nil
}
