package main

import (
	"errors"

	"github.com/SscSPs/voledger/internal/adapters/database/pgsql"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or with --down revert) PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DatabaseURL == "" {
				return errors.New("PGSQL_URL is required to run migrations")
			}
			if down > 0 {
				return pgsql.MigrateDown(a.cfg.DatabaseURL, down, a.logger)
			}
			return pgsql.MigrateUp(a.cfg.DatabaseURL, a.logger)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to revert instead of migrating up")
	return cmd
}
