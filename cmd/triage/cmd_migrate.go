package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/physio-triage-server/internal/database"
	"github.com/physio-triage-server/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationRunner(func(r *database.MigrationRunner) error {
			return r.Up(cmd.Context())
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationRunner(func(r *database.MigrationRunner) error {
			return r.Down(cmd.Context())
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrationRunner(func(r *database.MigrationRunner) error {
			version, dirty, err := r.Version()
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty)\n", version)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", version)
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

func withMigrationRunner(fn func(*database.MigrationRunner) error) error {
	manager, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, "stderr")
	if err != nil {
		return err
	}

	runner, err := database.NewMigrationRunner(database.ConfigFromDomain(cfg.Database).URL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	return fn(runner)
}
