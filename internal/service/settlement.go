package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/rating"
	"github.com/diegowsan/saltyboyC/internal/repository"

	"github.com/rs/zerolog"
)

// ObservedMatch is a completed match as reported by the chat listener,
// before validation. Optional fields stay nil when the announcer never
// provided them; such records are skipped, not errors.
type ObservedMatch struct {
	RedName    string
	BlueName   string
	WinnerName string
	Tier       domain.Tier
	Format     domain.MatchFormat
	Colour     string

	BetRed     *int64
	BetBlue    *int64
	StreakRed  *int
	StreakBlue *int

	// Bot bookkeeping for matches we wagered on.
	MyBetOn        *string
	MyWager        *int64
	Balance        *int64
	ExpectedPayout *int64
}

type SettlementService struct {
	fighters *repository.FighterRepository
	matches  *repository.MatchRepository
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewSettlementService(
	fighters *repository.FighterRepository,
	matches *repository.MatchRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SettlementService {
	return &SettlementService{fighters: fighters, matches: matches, metrics: m, logger: logger}
}

// RecordOutcome validates the observation, appends the match to the log and
// applies the rating update to both participants in one transaction.
// Ineligible or malformed observations are skipped with a data-quality
// warning; store failures propagate so the caller can retry.
func (s *SettlementService) RecordOutcome(ctx context.Context, obs ObservedMatch) error {
	if reason := ineligible(obs); reason != "" {
		s.metrics.RecordsSkipped.Inc()
		s.logger.Warn().
			Str("red", obs.RedName).
			Str("blue", obs.BlueName).
			Str("reason", reason).
			Msg("skipping match record")
		return nil
	}

	red, err := s.fighters.GetOrCreate(ctx, obs.RedName, obs.Tier, *obs.StreakRed)
	if err != nil {
		return fmt.Errorf("failed to resolve red fighter: %w", err)
	}
	blue, err := s.fighters.GetOrCreate(ctx, obs.BlueName, obs.Tier, *obs.StreakBlue)
	if err != nil {
		return fmt.Errorf("failed to resolve blue fighter: %w", err)
	}

	var winnerID int64
	switch obs.WinnerName {
	case red.Name:
		winnerID = red.ID
	case blue.Name:
		winnerID = blue.ID
	default:
		s.metrics.RecordsSkipped.Inc()
		s.logger.Warn().
			Str("winner", obs.WinnerName).
			Str("red", obs.RedName).
			Str("blue", obs.BlueName).
			Msg("winner is not a participant, skipping match record")
		return nil
	}

	now := time.Now().UTC()
	m := &domain.Match{
		Date:           now,
		FighterRed:     red.ID,
		FighterBlue:    blue.ID,
		Winner:         winnerID,
		Format:         obs.Format,
		Tier:           obs.Tier,
		BetRed:         *obs.BetRed,
		BetBlue:        *obs.BetBlue,
		StreakRed:      *obs.StreakRed,
		StreakBlue:     *obs.StreakBlue,
		Colour:         obs.Colour,
		MyBetOn:        obs.MyBetOn,
		MyWager:        obs.MyWager,
		MatchBalance:   obs.Balance,
		ExpectedPayout: obs.ExpectedPayout,
	}

	// Both updates read the opponent's pre-update snapshot.
	redSnap := rating.Snapshot(red)
	blueSnap := rating.Snapshot(blue)
	redWon := winnerID == red.ID
	rating.Apply(red, blueSnap, obs.Tier, *obs.StreakRed, redWon, now)
	rating.Apply(blue, redSnap, obs.Tier, *obs.StreakBlue, !redWon, now)

	if err := s.matches.RecordSettlement(ctx, m, red, blue); err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}

	s.metrics.MatchesSettled.Inc()
	s.logger.Info().
		Int64("match_id", m.ID).
		Str("winner", obs.WinnerName).
		Str("tier", string(obs.Tier)).
		Str("format", string(obs.Format)).
		Msg("match recorded")
	return nil
}

// ineligible returns a skip reason, or "" when the observation qualifies
// for statistics. Eligibility is a precondition, not a failure mode.
func ineligible(obs ObservedMatch) string {
	if !obs.Format.Eligible() {
		return "ineligible format"
	}
	if obs.StreakRed == nil || obs.StreakBlue == nil {
		return "missing streak values"
	}
	if obs.BetRed == nil || obs.BetBlue == nil {
		return "missing pool totals"
	}
	if *obs.BetRed < 0 || *obs.BetBlue < 0 {
		return "negative pool total"
	}
	if obs.WinnerName == "" {
		return "missing winner"
	}
	return ""
}
