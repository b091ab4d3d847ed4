// Package engine turns fighter records and the match log into a wager
// decision: feature extraction, logistic scoring and stake sizing.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
)

// Features are the four signals the scoring function consumes, computed for
// an ordered (red, blue) pair. All of them derive purely from stored state;
// extraction never mutates anything.
type Features struct {
	RatingDiff float64 // red tier rating minus blue tier rating
	StreakDiff float64 // staleness-gated streak differential
	H2H        float64 // head-to-head advantage, centered, in [-0.5, 0.5]
	Comp       float64 // common-opponent advantage, centered, in [-0.5, 0.5]
}

// MatchLog is the slice of the match store the extractor reads.
type MatchLog interface {
	ListBetween(ctx context.Context, a, b int64) ([]domain.Match, error)
	ListRecentByFighter(ctx context.Context, fighterID int64, limit int) ([]domain.Match, error)
}

type Extractor struct {
	log MatchLog
	now func() time.Time
}

func NewExtractor(log MatchLog) *Extractor {
	return &Extractor{log: log, now: time.Now}
}

func (e *Extractor) Extract(ctx context.Context, red, blue *domain.Fighter) (Features, error) {
	now := e.now()

	h2h, err := e.headToHead(ctx, red.ID, blue.ID)
	if err != nil {
		return Features{}, fmt.Errorf("failed to compute head-to-head: %w", err)
	}
	comp, err := e.commonOpponents(ctx, red.ID, blue.ID)
	if err != nil {
		return Features{}, fmt.Errorf("failed to compute common-opponent score: %w", err)
	}

	return Features{
		RatingDiff: red.TierElo - blue.TierElo,
		StreakDiff: float64(SafeStreak(red, now) - SafeStreak(blue, now)),
		H2H:        h2h,
		Comp:       comp,
	}, nil
}

// SafeStreak returns the fighter's current streak, or 0 when the fighter has
// been idle past the staleness window and the run is assumed dead.
func SafeStreak(f *domain.Fighter, now time.Time) int {
	if f == nil || f.CurrentStreak == 0 || f.LastMatchAt == nil {
		return 0
	}
	if now.Sub(*f.LastMatchAt) > constants.StreakStaleAfter {
		return 0
	}
	return f.CurrentStreak
}

// CenteredRate maps a win count over a total to a signal centered at zero,
// or exactly 0.0 when the sample is too small to trust.
func CenteredRate(wins, total int) float64 {
	if total < constants.MinSampleSize {
		return 0.0
	}
	return float64(wins)/float64(total) - 0.5
}

func (e *Extractor) headToHead(ctx context.Context, redID, blueID int64) (float64, error) {
	meetings, err := e.log.ListBetween(ctx, redID, blueID)
	if err != nil {
		return 0, err
	}

	redWins := 0
	for _, m := range meetings {
		if m.Winner == redID {
			redWins++
		}
	}
	return CenteredRate(redWins, len(meetings)), nil
}

// commonOpponents scores the transitive "triangle" signal: red beating an
// opponent that beat blue counts for red. The counting is deliberately
// asymmetric: a favorable transition increments wins and the total, an
// unfavorable one increments only the total.
func (e *Extractor) commonOpponents(ctx context.Context, redID, blueID int64) (float64, error) {
	redHist, err := e.log.ListRecentByFighter(ctx, redID, constants.OpponentScanLimit)
	if err != nil {
		return 0, err
	}
	blueHist, err := e.log.ListRecentByFighter(ctx, blueID, constants.OpponentScanLimit)
	if err != nil {
		return 0, err
	}

	redOpps := opponentResults(redHist, redID)
	blueOpps := opponentResults(blueHist, blueID)

	wins, total := CountTriangles(redOpps, blueOpps)
	return CenteredRate(wins, total), nil
}

// CountTriangles tallies common opponents per the triangle rule. Shared with
// the trainer's replay so live decisions and training rows agree exactly.
func CountTriangles(redOpps, blueOpps map[int64]bool) (wins, total int) {
	for oppID, redWon := range redOpps {
		blueWon, met := blueOpps[oppID]
		if !met {
			continue
		}
		if redWon && !blueWon {
			wins++
			total++
		} else if !redWon && blueWon {
			total++
		}
	}
	return wins, total
}

// opponentResults maps each opponent to the result of the latest meeting;
// later matches overwrite earlier ones.
func opponentResults(matches []domain.Match, selfID int64) map[int64]bool {
	opps := make(map[int64]bool, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		oppID := m.FighterBlue
		if m.FighterBlue == selfID {
			oppID = m.FighterRed
		}
		opps[oppID] = m.Winner == selfID
	}
	return opps
}
