package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users and tasks tables if they do not exist",
	Long:  `Applies the embedded schema.  Only the DB_* settings are read;
JWT_SECRET is not required.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(config.LoadDB)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err := database.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		slog.Info("migrate_done", "db", cfg.DBName, "statements", len(database.Statements()))
		return nil
	},
}
