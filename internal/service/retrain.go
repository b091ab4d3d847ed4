package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/trainer"

	"github.com/rs/zerolog"
)

type RetrainService struct {
	trainer *trainer.Trainer
	weights *repository.WeightRepository
	coeffs  *CoefficientHolder
	metrics *metrics.Metrics
	logger  zerolog.Logger
	running atomic.Bool
}

func NewRetrainService(
	t *trainer.Trainer,
	weights *repository.WeightRepository,
	coeffs *CoefficientHolder,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *RetrainService {
	return &RetrainService{trainer: t, weights: weights, coeffs: coeffs, metrics: m, logger: logger}
}

// Retrain refits the model from the full match log and, on success, persists
// the new coefficient set and swaps it live. A nil set means the log is
// still below the warm-up threshold and the current coefficients stay.
//
// The fit runs off the decision path, so at most one refit is in flight at a
// time; a trigger arriving while one runs is dropped, not queued. The next
// cadence trigger sees the newer matches anyway.
func (s *RetrainService) Retrain(ctx context.Context) (*domain.CoefficientSet, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info().Msg("retrain already in progress, skipping")
		return nil, nil
	}
	defer s.running.Store(false)

	cs, err := s.trainer.Fit(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrain failed: %w", err)
	}
	if cs == nil {
		return nil, nil
	}

	if err := s.weights.Insert(ctx, cs); err != nil {
		return nil, fmt.Errorf("failed to persist coefficients: %w", err)
	}

	s.coeffs.Swap(cs)
	s.metrics.Retrains.Inc()
	return cs, nil
}
