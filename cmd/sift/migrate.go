package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/sift/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/sift/internal/config"
)

func newMigrateCmd() *cobra.Command {
	var dbURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbURL != "" {
				cfg.DBURL = dbURL
			}
			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, cfg.DBURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database URL (overrides DB_URL env var)")
	return cmd
}
