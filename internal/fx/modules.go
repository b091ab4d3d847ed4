package fx

import (
	"github.com/diegowsan/saltyboyC/internal/bot"
	"github.com/diegowsan/saltyboyC/internal/config"
	"github.com/diegowsan/saltyboyC/internal/database"
	"github.com/diegowsan/saltyboyC/internal/engine"
	"github.com/diegowsan/saltyboyC/internal/logger"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/notifier"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/saltyboy"
	"github.com/diegowsan/saltyboyC/internal/saltyclient"
	"github.com/diegowsan/saltyboyC/internal/server"
	"github.com/diegowsan/saltyboyC/internal/service"
	"github.com/diegowsan/saltyboyC/internal/trainer"
	"github.com/diegowsan/saltyboyC/internal/twitch"
	"github.com/diegowsan/saltyboyC/internal/watchdog"

	"go.uber.org/fx"
)

func ProvideExtractor(matches *repository.MatchRepository) *engine.Extractor {
	return engine.NewExtractor(matches)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(metrics.New),
	// repos
	fx.Provide(repository.NewFighterRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewStateRepository),
	fx.Provide(repository.NewWeightRepository),
	// decision core
	fx.Provide(ProvideExtractor),
	fx.Provide(trainer.New),
	fx.Provide(service.NewCoefficientHolder),
	fx.Provide(service.NewDecisionService),
	fx.Provide(service.NewSettlementService),
	fx.Provide(service.NewRetrainService),
	fx.Provide(service.NewImportService),
	fx.Provide(service.NewPerformanceService),
	// collaborators
	fx.Provide(saltyclient.New),
	fx.Provide(saltyboy.New),
	fx.Provide(twitch.NewListener),
	fx.Provide(notifier.New),
	// daemon + api surfaces
	fx.Provide(bot.New),
	fx.Provide(watchdog.NewSupervisor),
	fx.Provide(server.New),
)
