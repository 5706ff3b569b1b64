package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/clubware/gearledger/internal/app"
	"github.com/clubware/gearledger/internal/clock"
	"github.com/clubware/gearledger/internal/config"
	"github.com/clubware/gearledger/internal/logging"
	"github.com/clubware/gearledger/internal/storage/postgres"
	transporthttp "github.com/clubware/gearledger/internal/transport/http"
	"github.com/clubware/gearledger/migrations"
)

// NewServeCommand creates the serve command, which runs the HTTP API.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	attempts := postgres.WithMaxAttempts(cfg.Engine.MaxTxAttempts)
	ledgerRepo := postgres.NewLedgerRepository(pool, attempts)
	catalogRepo := postgres.NewCatalogRepository(pool, attempts)

	clk := clock.NewSystem()
	ids := app.NewIDGen()
	invSvc := app.NewInvariantService(postgres.NewInvariantRepository(pool), logger)
	allocSvc := app.NewAllocationService(ledgerRepo, invSvc, clk, ids)
	reconSvc := app.NewReconciliationService(ledgerRepo, invSvc, clk)
	catalogSvc := app.NewCatalogService(catalogRepo, invSvc, clk, ids)
	querySvc := app.NewQueryService(postgres.NewQueryRepository(pool))

	handler := transporthttp.NewHandler(transporthttp.Services{
		Borrow:      allocSvc,
		Return:      reconSvc,
		Outstanding: querySvc,
		Equipment:   catalogSvc,
		Consistency: invSvc,
	}, cfg.Server.CORSOrigins, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	logger.Info("api listening", "port", cfg.Server.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "err", err)
	}
	logger.Info("server stopped")
	return nil
}
