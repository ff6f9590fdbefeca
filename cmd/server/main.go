package main // Entry point package

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/task-manager/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "task-manager",
	Short: "Multi-user task manager REST API",
	Long: `Serves the task manager HTTP API backed by MySQL.

Running without a subcommand is the same as "serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML file of KEY: value settings (environment wins)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env, then the optional config file, then the
// environment through load.  The logger is configured from the result.
func loadConfig(load func() (config.Config, error)) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	if configFile != "" {
		if err := config.LoadFile(configFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := load()
	if err != nil {
		return config.Config{}, err
	}
	setupSlog(cfg.LogLevel)
	return cfg, nil
}

func setupSlog(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
