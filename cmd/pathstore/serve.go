package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/pathstore"
	"github.com/jpalmerr/pathstore/config"
	"github.com/jpalmerr/pathstore/internal/server"
	"github.com/spf13/cobra"
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the pathstore HTTP bridge.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the state tree over HTTP",
	Long: `Serve a YAML-seeded state tree over HTTP.

The server will:
  - Load configuration from the specified YAML file
  - Seed a store with the configured initial state
  - Expose /api/state (JSON) and /api/events (SSE) on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pathstore serve -c config.yaml
  pathstore serve --config /etc/pathstore/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"watch_paths", len(cfg.Watch),
		"port", cfg.Port,
	)

	opts := append(config.BuildOptions(cfg), pathstore.WithLogger(logger))
	st, err := pathstore.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Destroy()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(st, cfg.Port, cfg.Watch, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info("server started", "addr", srv.Addr())

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
