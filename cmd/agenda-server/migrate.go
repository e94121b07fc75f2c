package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/config"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store/postgres"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		migrationCommand("up", "Apply pending migrations", "applied", postgres.Migrate),
		migrationCommand("down", "Roll back the last migration group", "rolled back", postgres.Rollback),
		migrationCommand("status", "List migrations not yet applied", "pending", postgres.Pending),
	)
	return cmd
}

func migrationCommand(use, short, verb string, run func(context.Context, *bun.DB) ([]string, error)) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if cfg.StorageDriver != "postgres" {
				return fmt.Errorf("migrations need storage.driver=postgres, got %q", cfg.StorageDriver)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{ApplicationName: serviceName + " migrate", MaxOpenConns: 2})
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer postgres.Close(db) //nolint:errcheck

			names, err := run(ctx, db)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(out, "nothing %s\n", verb)
				return nil
			}
			for _, name := range names {
				fmt.Fprintf(out, "%s %s\n", verb, name)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time for the whole run")
	return cmd
}
