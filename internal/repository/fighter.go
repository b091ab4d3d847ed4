package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"

	"github.com/rs/zerolog"
)

type FighterRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFighterRepository(sqlDB *sql.DB, logger zerolog.Logger) *FighterRepository {
	return &FighterRepository{db: sqlDB, logger: logger}
}

const fighterColumns = `id, name, tier, prev_tier, elo, tier_elo, current_streak, best_streak, last_match_at, created_at, updated_at`

func (r *FighterRepository) GetByID(ctx context.Context, id int64) (*domain.Fighter, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fighterColumns+` FROM fighter WHERE id = ?`, id)
	return scanFighter(row)
}

func (r *FighterRepository) GetByName(ctx context.Context, name string) (*domain.Fighter, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fighterColumns+` FROM fighter WHERE name = ?`, name)
	return scanFighter(row)
}

// Create registers a new fighter with default ratings. IDs are microsecond
// timestamps so rows imported from the site API never collide with ours.
func (r *FighterRepository) Create(ctx context.Context, name string, tier domain.Tier, bestStreak int) (*domain.Fighter, error) {
	now := time.Now().UTC()
	f := &domain.Fighter{
		ID:         safeID(),
		Name:       name,
		Tier:       tier,
		PrevTier:   tier,
		Elo:        constants.StartingElo,
		TierElo:    constants.StartingElo,
		BestStreak: bestStreak,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fighter (id, name, tier, prev_tier, elo, tier_elo, current_streak, best_streak, last_match_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		f.ID, f.Name, string(f.Tier), string(f.PrevTier), f.Elo, f.TierElo, f.CurrentStreak, f.BestStreak, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create fighter %s: %w", name, err)
	}

	r.logger.Info().Int64("fighter_id", f.ID).Str("name", name).Str("tier", string(tier)).Msg("fighter created")
	return f, nil
}

// Insert stores a fully specified fighter, keeping the caller's id. The
// stats import uses this so our rows share ids with the upstream API.
func (r *FighterRepository) Insert(ctx context.Context, f *domain.Fighter) error {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	var lastMatch any
	if f.LastMatchAt != nil {
		lastMatch = *f.LastMatchAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fighter (id, name, tier, prev_tier, elo, tier_elo, current_streak, best_streak, last_match_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, string(f.Tier), string(f.PrevTier), f.Elo, f.TierElo, f.CurrentStreak, f.BestStreak, lastMatch, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert fighter %d: %w", f.ID, err)
	}
	return nil
}

// ReassignID moves a fighter to a new id and rewrites every match reference
// in the same transaction. Needed when the stats API knows a fighter we
// created locally under a different id.
func (r *FighterRepository) ReassignID(ctx context.Context, oldID, newID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin id reassignment: %w", err)
	}
	defer tx.Rollback()

	// The match rows still point at the old id until the end of the
	// transaction.
	if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
		return fmt.Errorf("failed to defer foreign keys: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE fighter SET id = ?, updated_at = ? WHERE id = ?`, newID, time.Now().UTC(), oldID)
	if err != nil {
		return fmt.Errorf("failed to reassign fighter %d to %d: %w", oldID, newID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read reassignment result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	for _, column := range []string{"fighter_red", "fighter_blue", "winner"} {
		if _, err := tx.ExecContext(ctx,
			`UPDATE "match" SET `+column+` = ? WHERE `+column+` = ?`, newID, oldID); err != nil {
			return fmt.Errorf("failed to rewrite match %s references: %w", column, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit id reassignment: %w", err)
	}

	r.logger.Info().Int64("old_id", oldID).Int64("new_id", newID).Msg("fighter id reassigned")
	return nil
}

func (r *FighterRepository) GetOrCreate(ctx context.Context, name string, tier domain.Tier, bestStreak int) (*domain.Fighter, error) {
	f, err := r.GetByName(ctx, name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return r.Create(ctx, name, tier, bestStreak)
}

// Update persists the mutable fields of a fighter record.
func (r *FighterRepository) Update(ctx context.Context, f *domain.Fighter) error {
	return updateFighter(ctx, r.db, f)
}

func (r *FighterRepository) List(ctx context.Context, limit, offset int) ([]domain.Fighter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fighterColumns+` FROM fighter ORDER BY name ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list fighters: %w", err)
	}
	defer rows.Close()

	var fighters []domain.Fighter
	for rows.Next() {
		f, err := scanFighter(rows)
		if err != nil {
			return nil, err
		}
		fighters = append(fighters, *f)
	}
	return fighters, rows.Err()
}

func (r *FighterRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM fighter`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fighters: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFighter(row rowScanner) (*domain.Fighter, error) {
	var f domain.Fighter
	var tier, prevTier string
	var lastMatch sql.NullTime

	err := row.Scan(&f.ID, &f.Name, &tier, &prevTier, &f.Elo, &f.TierElo,
		&f.CurrentStreak, &f.BestStreak, &lastMatch, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fighter: %w", err)
	}

	f.Tier = domain.Tier(tier)
	f.PrevTier = domain.Tier(prevTier)
	if lastMatch.Valid {
		t := lastMatch.Time
		f.LastMatchAt = &t
	}
	return &f, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateFighter(ctx context.Context, ex execer, f *domain.Fighter) error {
	var lastMatch any
	if f.LastMatchAt != nil {
		lastMatch = *f.LastMatchAt
	}

	res, err := ex.ExecContext(ctx,
		`UPDATE fighter
		 SET tier = ?, prev_tier = ?, elo = ?, tier_elo = ?, current_streak = ?, best_streak = ?, last_match_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(f.Tier), string(f.PrevTier), f.Elo, f.TierElo, f.CurrentStreak, f.BestStreak, lastMatch, time.Now().UTC(), f.ID)
	if err != nil {
		return fmt.Errorf("failed to update fighter %d: %w", f.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for fighter %d: %w", f.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var lastID atomic.Int64

// safeID returns a unique id derived from the current time in microseconds.
// Ids are strictly increasing within the process, so back-to-back creates in
// the same microsecond cannot collide.
func safeID() int64 {
	for {
		id := time.Now().UnixMicro()
		last := lastID.Load()
		if id <= last {
			id = last + 1
		}
		if lastID.CompareAndSwap(last, id) {
			return id
		}
	}
}
