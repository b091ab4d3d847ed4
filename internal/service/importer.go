package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/saltyboy"

	"github.com/rs/zerolog"
)

// ImportService reconciles our store with the upstream stats API: fighter
// ratings follow the API, and matches we missed while offline are backfilled
// from the API's per-fighter history.
type ImportService struct {
	fighters *repository.FighterRepository
	matches  *repository.MatchRepository
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewImportService(
	fighters *repository.FighterRepository,
	matches *repository.MatchRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ImportService {
	return &ImportService{fighters: fighters, matches: matches, metrics: m, logger: logger}
}

// SyncFighter makes our record for the fighter match the API's: same id,
// same ratings, same tier. Three cases, in order:
//
//   - known under the API id: overwrite the ratings and tier,
//   - known by name under a locally generated id: move the row to the API id
//     first, rewriting match references, then overwrite,
//   - unknown: insert a fresh row under the API id.
func (s *ImportService) SyncFighter(ctx context.Context, info *saltyboy.FighterInfo) error {
	if info == nil {
		return nil
	}

	f, err := s.fighters.GetByID(ctx, info.ID)
	if errors.Is(err, repository.ErrNotFound) {
		f, err = s.adoptAPIID(ctx, info)
	}
	if err != nil {
		return err
	}
	if f == nil {
		return nil // freshly inserted, already carries the API stats
	}

	if f.Tier != domain.Tier(info.Tier) {
		f.PrevTier = f.Tier
		f.Tier = domain.Tier(info.Tier)
	}
	f.Elo = info.Elo
	f.TierElo = info.TierElo

	if err := s.fighters.Update(ctx, f); err != nil {
		return fmt.Errorf("failed to sync fighter %s: %w", info.Name, err)
	}
	return nil
}

// adoptAPIID resolves a fighter the API knows under an id we don't. When the
// name exists locally the row was created before we saw the API id, so it is
// moved; otherwise a new row is inserted. Returns nil on insert since there
// is nothing left to update.
func (s *ImportService) adoptAPIID(ctx context.Context, info *saltyboy.FighterInfo) (*domain.Fighter, error) {
	local, err := s.fighters.GetByName(ctx, info.Name)
	if err == nil {
		if err := s.fighters.ReassignID(ctx, local.ID, info.ID); err != nil {
			return nil, fmt.Errorf("failed to adopt api id for %s: %w", info.Name, err)
		}
		return s.fighters.GetByID(ctx, info.ID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	f := &domain.Fighter{
		ID:       info.ID,
		Name:     info.Name,
		Tier:     domain.Tier(info.Tier),
		PrevTier: domain.Tier(info.Tier),
		Elo:      info.Elo,
		TierElo:  info.TierElo,
	}
	if err := s.fighters.Insert(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to import fighter %s: %w", info.Name, err)
	}
	s.logger.Info().Int64("fighter_id", f.ID).Str("name", f.Name).Msg("fighter imported from stats api")
	return nil, nil
}

// BackfillMatches inserts the fighter's history entries we have no record
// of. Matches already stored and matches naming a fighter we have never seen
// are skipped; fighter state is never touched, the trainer picks the new
// rows up on its next full replay. Returns the number of matches inserted.
func (s *ImportService) BackfillMatches(ctx context.Context, info *saltyboy.FighterInfo) (int, error) {
	if info == nil {
		return 0, nil
	}

	inserted := 0
	for _, rec := range info.Matches {
		if _, err := s.matches.GetByID(ctx, rec.ID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return inserted, err
		}

		known, err := s.participantsKnown(ctx, rec)
		if err != nil {
			return inserted, err
		}
		if !known {
			s.metrics.RecordsSkipped.Inc()
			continue
		}

		m := domain.Match{
			ID:          rec.ID,
			Date:        rec.Date.Time,
			FighterRed:  rec.FighterRed,
			FighterBlue: rec.FighterBlue,
			Winner:      rec.Winner,
			Format:      domain.MatchFormat(rec.Format),
			Tier:        domain.Tier(rec.Tier),
			StreakRed:   rec.StreakRed,
			StreakBlue:  rec.StreakBlue,
			Colour:      rec.Colour,
		}
		if rec.BetRed != nil {
			m.BetRed = *rec.BetRed
		}
		if rec.BetBlue != nil {
			m.BetBlue = *rec.BetBlue
		}

		if err := s.matches.Insert(ctx, &m); err != nil {
			return inserted, fmt.Errorf("failed to backfill match %d: %w", rec.ID, err)
		}
		inserted++
	}

	if inserted > 0 {
		s.metrics.MatchesImported.Add(float64(inserted))
		s.logger.Info().Int("matches", inserted).Str("name", info.Name).Msg("match history backfilled")
	}
	return inserted, nil
}

func (s *ImportService) participantsKnown(ctx context.Context, rec saltyboy.MatchRecord) (bool, error) {
	for _, id := range []int64{rec.FighterRed, rec.FighterBlue} {
		if _, err := s.fighters.GetByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
			return false, nil
		} else if err != nil {
			return false, err
		}
	}
	return true, nil
}
