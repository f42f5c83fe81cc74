/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yamdb/apiserver/internal/db"
	"github.com/yamdb/apiserver/internal/logging"
)

var (
	migrationsURL string
	downSteps     int
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.MigrateUp(migrationsURL, db.DSN(cfg.Database)); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		logging.Info().Msg("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `Roll back the last --steps migrations, or every migration when
--steps is 0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.MigrateDown(migrationsURL, db.DSN(cfg.Database), downSteps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		logging.Info().Int("steps", downSteps).Msg("migrations rolled back")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.PersistentFlags().StringVar(&migrationsURL, "source", db.DefaultMigrationsURL, "migrations source URL")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back, 0 for all")
}
