package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/clubware/gearledger/internal/config"
	"github.com/clubware/gearledger/migrations"
)

// NewMigrateCommand creates the migrate command, which applies pending schema
// migrations and exits.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect to db: %w", err)
			}
			defer pool.Close()

			if err := migrations.Apply(ctx, pool); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}
