// Package main is the entry point for the pathstore CLI.
//
// pathstore can be used either as a library (SDK) or as a standalone binary
// that serves a YAML-seeded state tree over HTTP. This CLI provides the
// standalone binary approach.
//
// Usage:
//
//	pathstore serve -c config.yaml     # Serve the state tree over HTTP
//	pathstore validate -c config.yaml  # Validate configuration
//	pathstore tail --url http://localhost:8080   # Follow change events
//	pathstore version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pathstore",
	Short: "An observable state tree served over HTTP",
	Long: `pathstore holds a hierarchical state tree addressed by dot paths and
streams changes to subscribers.

Quick start:
  1. Create a config file (pathstore.yaml)
  2. Run: pathstore serve -c pathstore.yaml
  3. Follow changes: pathstore tail --url http://localhost:8080

Example config:
  port: 8080
  watch:
    - user.*
  state:
    user:
      name: Alice`,
	// No Run/RunE means this just shows help when called without subcommands
	PersistentPreRunE: loadEnvFile,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file loaded before config substitution")
}

// loadEnvFile loads a dotenv file, if requested, before any subcommand
// runs. Variables already set in the environment win, matching godotenv's
// default behavior.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pathstore %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}
