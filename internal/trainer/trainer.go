// Package trainer refits the scoring coefficients from the full match log.
//
// Every run replays the eligible log from a clean in-memory state: the
// tier-rating and streak rules of the live settlement path are mirrored
// match by match, and the feature row for match N only ever sees matches
// recorded before N. This is a batch recompute, not online learning.
package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/engine"
	"github.com/diegowsan/saltyboyC/internal/rating"
	"github.com/diegowsan/saltyboyC/internal/repository"

	"github.com/rs/zerolog"
)

type Trainer struct {
	matches *repository.MatchRepository
	logger  zerolog.Logger
}

func New(matches *repository.MatchRepository, logger zerolog.Logger) *Trainer {
	return &Trainer{matches: matches, logger: logger}
}

// Fit replays the eligible match log and fits a fresh coefficient set.
// Returns (nil, nil) while the log is below the warm-up threshold.
func (t *Trainer) Fit(ctx context.Context) (*domain.CoefficientSet, error) {
	count, err := t.matches.CountEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}
	if count < constants.TrainWarmupMatches {
		t.logger.Info().Int64("matches", count).Int("warmup", constants.TrainWarmupMatches).Msg("not enough matches to train")
		return nil, nil
	}

	matches, err := t.matches.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load match log: %w", err)
	}

	start := time.Now()
	rows, labels := BuildTrainingRows(matches)

	fit, err := fitLogistic(rows, labels, fitOptions{
		LearningRate:  constants.FitLearningRate,
		MaxIterations: constants.FitMaxIterations,
		Tolerance:     constants.FitTolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}

	cs := &domain.CoefficientSet{
		CreatedAt: time.Now().UTC(),
		Intercept: fit.Intercept,
		TierElo:   fit.Weights[0],
		Streak:    fit.Weights[1],
		H2H:       fit.Weights[2],
		Comp:      fit.Weights[3],
	}

	t.logger.Info().
		Int("rows", len(rows)).
		Int("iterations", fit.Iterations).
		Bool("converged", fit.Converged).
		Float64("log_likelihood", fit.LogLikelihood).
		Dur("elapsed", time.Since(start)).
		Msg("model fitted")
	return cs, nil
}

// replayState mirrors one fighter's tier rating, streak and match history
// during the replay. Persisted fighter state is never touched.
type replayState struct {
	tier      domain.Tier
	tierElo   float64
	streak    int
	lastMatch time.Time
	seen      bool

	// meetings holds every past (opponent, won) pair in order, for the
	// head-to-head count; opps keeps only the latest result per opponent,
	// for the triangle score.
	meetings []meeting
	opps     map[int64]bool
}

type meeting struct {
	opponent int64
	won      bool
}

func newReplayState() *replayState {
	return &replayState{tierElo: constants.StartingElo, opps: make(map[int64]bool)}
}

// BuildTrainingRows derives one feature row per match, each computed from
// state as of just before that match. Rows are [rating diff, streak diff,
// h2h, comp]; the label is 1 when red won. The caller must supply matches in
// (date, id) order.
func BuildTrainingRows(matches []domain.Match) (rows [][]float64, labels []float64) {
	states := make(map[int64]*replayState)
	state := func(id int64) *replayState {
		s, ok := states[id]
		if !ok {
			s = newReplayState()
			states[id] = s
		}
		return s
	}

	rows = make([][]float64, 0, len(matches))
	labels = make([]float64, 0, len(matches))

	for _, m := range matches {
		red := state(m.FighterRed)
		blue := state(m.FighterBlue)
		redWon := m.Winner == m.FighterRed

		rows = append(rows, []float64{
			red.tierElo - blue.tierElo,
			float64(replayStreak(red, m.Date) - replayStreak(blue, m.Date)),
			replayH2H(red, m.FighterBlue),
			replayComp(red, blue),
		})
		label := 0.0
		if redWon {
			label = 1.0
		}
		labels = append(labels, label)

		advance(red, blue, m, redWon)
	}
	return rows, labels
}

// advance applies the settlement rating/streak rules to the in-memory pair.
func advance(red, blue *replayState, m domain.Match, redWon bool) {
	for _, s := range []*replayState{red, blue} {
		if s.seen && s.tier != m.Tier {
			s.tierElo = constants.StartingElo
		}
		s.tier = m.Tier
		s.seen = true
	}

	redElo, blueElo := red.tierElo, blue.tierElo
	red.tierElo += rating.Delta(redElo, blueElo, redWon)
	blue.tierElo += rating.Delta(blueElo, redElo, !redWon)

	red.streak = rating.NextStreak(red.streak, redWon)
	blue.streak = rating.NextStreak(blue.streak, !redWon)
	red.lastMatch = m.Date
	blue.lastMatch = m.Date

	red.meetings = append(red.meetings, meeting{opponent: m.FighterBlue, won: redWon})
	blue.meetings = append(blue.meetings, meeting{opponent: m.FighterRed, won: !redWon})
	red.opps[m.FighterBlue] = redWon
	blue.opps[m.FighterRed] = !redWon
}

func replayStreak(s *replayState, asOf time.Time) int {
	if s.streak == 0 || s.lastMatch.IsZero() {
		return 0
	}
	if asOf.Sub(s.lastMatch) > constants.StreakStaleAfter {
		return 0
	}
	return s.streak
}

func replayH2H(red *replayState, blueID int64) float64 {
	wins, total := 0, 0
	for _, m := range red.meetings {
		if m.opponent != blueID {
			continue
		}
		total++
		if m.won {
			wins++
		}
	}
	return engine.CenteredRate(wins, total)
}

func replayComp(red, blue *replayState) float64 {
	wins, total := engine.CountTriangles(red.opps, blue.opps)
	return engine.CenteredRate(wins, total)
}
