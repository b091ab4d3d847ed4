package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/diegowsan/saltyboyC/internal/bot"
	"github.com/diegowsan/saltyboyC/internal/config"
	fxmodules "github.com/diegowsan/saltyboyC/internal/fx"
	"github.com/diegowsan/saltyboyC/internal/watchdog"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runDaemon),
	).Run()
}

func runDaemon(
	lc fx.Lifecycle,
	supervisor *watchdog.Supervisor,
	b *bot.Bot,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.MetricsPort), Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				logger.Info().Str("metrics_addr", metricsSrv.Addr).Msg("betting daemon starting")

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return supervisor.Run(gctx, b.Run)
				})
				g.Go(func() error {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					return metricsSrv.Shutdown(context.Background())
				})

				if err := g.Wait(); err != nil && ctx.Err() == nil {
					logger.Fatal().Err(err).Msg("daemon failed")
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info().Msg("shutting down betting daemon")
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("betting daemon stopped")
			return nil
		},
	})
}
