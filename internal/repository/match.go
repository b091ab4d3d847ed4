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

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

const matchColumns = `id, date, fighter_red, fighter_blue, winner, match_format, tier, bet_red, bet_blue, streak_red, streak_blue, colour, my_bet_on, my_wager, match_balance, expected_payout, created_at`

const eligibleFormats = `('matchmaking', 'tournament')`

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM "match" WHERE id = ?`, id)
	return scanMatch(row)
}

// ListBetween returns all eligible meetings of the two fighters, in either role.
func (r *MatchRepository) ListBetween(ctx context.Context, a, b int64) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM "match"
		 WHERE ((fighter_red = ? AND fighter_blue = ?) OR (fighter_red = ? AND fighter_blue = ?))
		   AND match_format IN `+eligibleFormats+`
		 ORDER BY date ASC, id ASC`,
		a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches between %d and %d: %w", a, b, err)
	}
	return collectMatches(rows)
}

// ListRecentByFighter returns the fighter's most recent eligible matches,
// newest first, capped at limit.
func (r *MatchRepository) ListRecentByFighter(ctx context.Context, fighterID int64, limit int) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM "match"
		 WHERE (fighter_red = ? OR fighter_blue = ?)
		   AND match_format IN `+eligibleFormats+`
		 ORDER BY date DESC, id DESC LIMIT ?`,
		fighterID, fighterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for fighter %d: %w", fighterID, err)
	}
	return collectMatches(rows)
}

// ListEligible returns every eligible match ordered by (date, id). The
// ordering is the replay contract for the offline trainer: timestamp first,
// strictly increasing id as the tie break.
func (r *MatchRepository) ListEligible(ctx context.Context) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM "match"
		 WHERE match_format IN `+eligibleFormats+`
		 ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible matches: %w", err)
	}
	return collectMatches(rows)
}

func (r *MatchRepository) CountEligible(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM "match" WHERE match_format IN `+eligibleFormats).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible matches: %w", err)
	}
	return n, nil
}

func (r *MatchRepository) List(ctx context.Context, limit, offset int) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM "match" ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return collectMatches(rows)
}

// ListRecentBets returns the most recent matches the bot wagered on, newest
// first. Used by the performance report.
func (r *MatchRepository) ListRecentBets(ctx context.Context, limit int) ([]domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM "match"
		 WHERE my_wager IS NOT NULL
		 ORDER BY date DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bets: %w", err)
	}
	return collectMatches(rows)
}

// LatestBalance returns the account balance snapshot from the most recent
// match that recorded one.
func (r *MatchRepository) LatestBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT match_balance FROM "match" WHERE match_balance IS NOT NULL ORDER BY date DESC, id DESC LIMIT 1`).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read latest balance: %w", err)
	}
	return balance, nil
}

// RecordSettlement appends the match and persists both updated fighter
// records in one transaction, so rating state can never desynchronize from
// the match log.
func (r *MatchRepository) RecordSettlement(ctx context.Context, m *domain.Match, red, blue *domain.Fighter) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertMatch(ctx, tx, m); err != nil {
		return err
	}
	if err := updateFighter(ctx, tx, red); err != nil {
		return err
	}
	if err := updateFighter(ctx, tx, blue); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	r.logger.Debug().
		Int64("match_id", m.ID).
		Int64("winner", m.Winner).
		Str("tier", string(m.Tier)).
		Msg("match settled")
	return nil
}

// Insert appends a match without touching fighter state. Used by the stats
// history backfill; the trainer sees the row on its next full replay.
func (r *MatchRepository) Insert(ctx context.Context, m *domain.Match) error {
	return insertMatch(ctx, r.db, m)
}

func insertMatch(ctx context.Context, ex execer, m *domain.Match) error {
	if m.ID == 0 {
		m.ID = safeID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := ex.ExecContext(ctx,
		`INSERT INTO "match"
		   (id, date, fighter_red, fighter_blue, winner, match_format, tier, bet_red, bet_blue, streak_red, streak_blue, colour, my_bet_on, my_wager, match_balance, expected_payout, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Date, m.FighterRed, m.FighterBlue, m.Winner, string(m.Format), string(m.Tier),
		m.BetRed, m.BetBlue, m.StreakRed, m.StreakBlue, m.Colour,
		m.MyBetOn, m.MyWager, m.MatchBalance, m.ExpectedPayout, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match %d: %w", m.ID, err)
	}
	return nil
}

func collectMatches(rows *sql.Rows) ([]domain.Match, error) {
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func scanMatch(row rowScanner) (*domain.Match, error) {
	var m domain.Match
	var format, tier string
	var myBetOn sql.NullString
	var myWager, matchBalance, expectedPayout sql.NullInt64

	err := row.Scan(&m.ID, &m.Date, &m.FighterRed, &m.FighterBlue, &m.Winner, &format, &tier,
		&m.BetRed, &m.BetBlue, &m.StreakRed, &m.StreakBlue, &m.Colour,
		&myBetOn, &myWager, &matchBalance, &expectedPayout, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}

	m.Format = domain.MatchFormat(format)
	m.Tier = domain.Tier(tier)
	if myBetOn.Valid {
		m.MyBetOn = &myBetOn.String
	}
	if myWager.Valid {
		m.MyWager = &myWager.Int64
	}
	if matchBalance.Valid {
		m.MatchBalance = &matchBalance.Int64
	}
	if expectedPayout.Valid {
		m.ExpectedPayout = &expectedPayout.Int64
	}
	return &m, nil
}
