package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/diegowsan/saltyboyC/internal/domain"

	"github.com/rs/zerolog"
)

type WeightRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewWeightRepository(sqlDB *sql.DB, logger zerolog.Logger) *WeightRepository {
	return &WeightRepository{db: sqlDB, logger: logger}
}

// Insert persists a fitted coefficient set as a new row; sets are append-only
// and never updated in place.
func (r *WeightRepository) Insert(ctx context.Context, cs *domain.CoefficientSet) error {
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO model_weight (created_at, intercept, tier_elo, streak, h2h, comp) VALUES (?, ?, ?, ?, ?, ?)`,
		cs.CreatedAt, cs.Intercept, cs.TierElo, cs.Streak, cs.H2H, cs.Comp)
	if err != nil {
		return fmt.Errorf("failed to insert coefficient set: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read coefficient set id: %w", err)
	}
	cs.ID = id

	r.logger.Info().
		Int64("weight_id", id).
		Float64("intercept", cs.Intercept).
		Float64("tier_elo", cs.TierElo).
		Float64("streak", cs.Streak).
		Float64("h2h", cs.H2H).
		Float64("comp", cs.Comp).
		Msg("coefficient set saved")
	return nil
}

// Latest returns the most recently fitted coefficient set.
func (r *WeightRepository) Latest(ctx context.Context) (*domain.CoefficientSet, error) {
	var cs domain.CoefficientSet
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, intercept, tier_elo, streak, h2h, comp FROM model_weight ORDER BY id DESC LIMIT 1`).
		Scan(&cs.ID, &cs.CreatedAt, &cs.Intercept, &cs.TierElo, &cs.Streak, &cs.H2H, &cs.Comp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest coefficient set: %w", err)
	}
	return &cs, nil
}
