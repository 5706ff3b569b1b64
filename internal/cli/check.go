package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/clubware/gearledger/internal/app"
	"github.com/clubware/gearledger/internal/config"
	"github.com/clubware/gearledger/internal/logging"
	"github.com/clubware/gearledger/internal/storage/postgres"
)

// NewCheckCommand creates the check command, which audits the stock
// accounting identity across the whole catalog. It exits non-zero when any
// equipment is inconsistent, so it can run from cron.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Audit stock accounting across all equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect to db: %w", err)
			}
			defer pool.Close()

			inv := app.NewInvariantService(postgres.NewInvariantRepository(pool), logger)
			reports, err := inv.CheckAll(ctx)
			if err != nil {
				return err
			}

			broken := 0
			for _, rep := range reports {
				if rep.Consistent {
					continue
				}
				broken++
				cmd.Printf("INCONSISTENT %s %s/%s total=%d available=%d outstanding=%d\n",
					rep.EquipmentID, rep.Category, rep.Model, rep.Total, rep.Available, rep.Outstanding)
			}
			if broken > 0 {
				return fmt.Errorf("%d of %d equipment rows inconsistent", broken, len(reports))
			}
			cmd.Printf("all %d equipment rows consistent\n", len(reports))
			return nil
		},
	}
}
