package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PJ1229/OOTD/internal/config"
	"github.com/PJ1229/OOTD/internal/database"
	"github.com/PJ1229/OOTD/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to run migrations")
			}
			logger := logging.New(cfg.LogLevel, cfg.Environment)

			migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer migrator.Close()

			applied, err := migrator.Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			}
			return nil
		},
	}
}
