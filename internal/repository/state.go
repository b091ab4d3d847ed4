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

// StateRepository holds the single-row operational tables shared between the
// bot loop and the read API: the match currently open for betting and the
// bot heartbeat the watchdog monitors.
type StateRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStateRepository(sqlDB *sql.DB, logger zerolog.Logger) *StateRepository {
	return &StateRepository{db: sqlDB, logger: logger}
}

func (r *StateRepository) SetCurrentMatch(ctx context.Context, cm domain.CurrentMatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin current match update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM current_match`); err != nil {
		return fmt.Errorf("failed to clear current match: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO current_match (fighter_red, fighter_blue, tier, match_format, updated_at) VALUES (?, ?, ?, ?, ?)`,
		cm.FighterRed, cm.FighterBlue, string(cm.Tier), string(cm.Format), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set current match: %w", err)
	}
	return tx.Commit()
}

func (r *StateRepository) GetCurrentMatch(ctx context.Context) (*domain.CurrentMatch, error) {
	var cm domain.CurrentMatch
	var tier, format string
	err := r.db.QueryRowContext(ctx,
		`SELECT fighter_red, fighter_blue, tier, match_format, updated_at FROM current_match LIMIT 1`).
		Scan(&cm.FighterRed, &cm.FighterBlue, &tier, &format, &cm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current match: %w", err)
	}
	cm.Tier = domain.Tier(tier)
	cm.Format = domain.MatchFormat(format)
	return &cm, nil
}

// Beat refreshes the heartbeat row to now.
func (r *StateRepository) Beat(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin heartbeat update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_heartbeat`); err != nil {
		return fmt.Errorf("failed to clear heartbeat: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO bot_heartbeat (heartbeat_time) VALUES (?)`, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write heartbeat: %w", err)
	}
	return tx.Commit()
}

func (r *StateRepository) LastBeat(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := r.db.QueryRowContext(ctx, `SELECT heartbeat_time FROM bot_heartbeat LIMIT 1`).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read heartbeat: %w", err)
	}
	return t, nil
}
