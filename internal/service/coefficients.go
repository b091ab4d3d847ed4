package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultCoefficients are the hand-tuned weights used until the first fit.
var DefaultCoefficients = domain.CoefficientSet{
	Intercept: -0.02,
	TierElo:   0.0055,
	Streak:    0.012,
	H2H:       1.5,
	Comp:      0.16,
}

// CoefficientHolder publishes the live coefficient set. Swaps are whole-set
// pointer replacements, so a reader always observes either the old or the
// new set, never a mix.
type CoefficientHolder struct {
	current atomic.Pointer[domain.CoefficientSet]
	logger  zerolog.Logger
}

func NewCoefficientHolder(weights *repository.WeightRepository, logger zerolog.Logger) *CoefficientHolder {
	h := &CoefficientHolder{logger: logger}

	seed := DefaultCoefficients
	if latest, err := weights.Latest(context.Background()); err == nil {
		seed = *latest
		logger.Info().Int64("weight_id", latest.ID).Msg("loaded persisted coefficient set")
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.Warn().Err(err).Msg("failed to load persisted coefficients, using defaults")
	} else {
		logger.Info().Msg("no persisted coefficients, using defaults")
	}
	h.current.Store(&seed)
	return h
}

func (h *CoefficientHolder) Current() *domain.CoefficientSet {
	return h.current.Load()
}

func (h *CoefficientHolder) Swap(cs *domain.CoefficientSet) {
	h.current.Store(cs)
	h.logger.Info().
		Float64("intercept", cs.Intercept).
		Float64("tier_elo", cs.TierElo).
		Float64("streak", cs.Streak).
		Float64("h2h", cs.H2H).
		Float64("comp", cs.Comp).
		Msg("live coefficients swapped")
}
