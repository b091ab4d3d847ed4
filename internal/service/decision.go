package service

import (
	"context"
	"errors"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/engine"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/repository"

	"github.com/rs/zerolog"
)

type DecisionService struct {
	fighters  *repository.FighterRepository
	extractor *engine.Extractor
	coeffs    *CoefficientHolder
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewDecisionService(
	fighters *repository.FighterRepository,
	extractor *engine.Extractor,
	coeffs *CoefficientHolder,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *DecisionService {
	return &DecisionService{fighters: fighters, extractor: extractor, coeffs: coeffs, metrics: m, logger: logger}
}

// Decide produces a wager instruction for the (red, blue) matchup. It never
// fails: unknown or unrated fighters bet the defined minimum, and a store
// failure falls back to the minimum as well, surfaced through the log and
// the fallback counter rather than an error.
func (s *DecisionService) Decide(ctx context.Context, redName, blueName string, balance int64) domain.Decision {
	red, err := s.lookup(ctx, redName)
	if err != nil {
		return s.fallback(redName, blueName, err)
	}
	blue, err := s.lookup(ctx, blueName)
	if err != nil {
		return s.fallback(redName, blueName, err)
	}

	// Unrated matchups are pure chance: skip scoring entirely.
	if red == nil || blue == nil || red.Tier.Unrated() || blue.Tier.Unrated() {
		s.logger.Info().Str("red", redName).Str("blue", blueName).Msg("unrated matchup, betting minimum")
		return engine.MinimalStake()
	}

	features, err := s.extractor.Extract(ctx, red, blue)
	if err != nil {
		return s.fallback(redName, blueName, err)
	}

	probRed := engine.Score(features, s.coeffs.Current())
	decision := engine.SizeStake(probRed, balance, red, blue)

	s.logger.Info().
		Str("red", redName).
		Str("blue", blueName).
		Float64("rating_diff", features.RatingDiff).
		Float64("streak_diff", features.StreakDiff).
		Float64("h2h", features.H2H).
		Float64("comp", features.Comp).
		Float64("prob_red", probRed).
		Str("side", string(decision.Side)).
		Int64("stake", decision.Stake).
		Float64("confidence", decision.Confidence).
		Msg("wager decided")
	return decision
}

// lookup returns (nil, nil) for a fighter the store has never seen.
func (s *DecisionService) lookup(ctx context.Context, name string) (*domain.Fighter, error) {
	f, err := s.fighters.GetByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *DecisionService) fallback(redName, blueName string, err error) domain.Decision {
	s.metrics.DecisionFallbacks.Inc()
	s.logger.Error().Err(err).Str("red", redName).Str("blue", blueName).Msg("decision failed, betting minimum")
	return engine.MinimalStake()
}
