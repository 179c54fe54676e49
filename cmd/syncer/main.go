package main

import (
	"context"
	"database/sql"
	"os"

	"vintage-stats/internal/config"
	fxmodules "vintage-stats/internal/fx"
	"vintage-stats/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runSync),
	).Run()
}

// runSync performs a single pass and then shuts the app down; scheduling is
// left to the caller (cron, systemd timer).
func runSync(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	runner *service.Runner,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				report, err := runner.Run(runCtx)
				close(done)

				code := 0
				if err != nil {
					logger.Error().Err(err).Msg("sync run incomplete")
					code = 1
				} else if report.Failed() == len(cfg.Accounts) {
					logger.Error().Int("accounts", len(cfg.Accounts)).Msg("every account failed to sync")
					code = 1
				}
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error().Err(err).Msg("shutdown failed")
					os.Exit(code)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// an interrupted run still records its bookkeeping before the db goes away
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn().Msg("sync run did not finish before stop timeout")
			}

			logger.Info().Msg("closing database")
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
}
