// Package rating implements the incremental Elo and streak update applied to
// both participants of a settled match.
package rating

import (
	"math"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
)

// ExpectedScore is the probability that a rating of a beats a rating of b.
func ExpectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400.0))
}

// Delta is the rating change for a player rated a against an opponent rated b.
func Delta(a, b float64, won bool) float64 {
	score := 0.0
	if won {
		score = 1.0
	}
	return constants.EloK * (score - ExpectedScore(a, b))
}

// NextStreak applies the streak flip rules: a winner coming off losses starts
// a fresh +1 run, a loser coming off wins starts a fresh -1 run.
func NextStreak(old int, won bool) int {
	if won {
		if old > 0 {
			return old + 1
		}
		return 1
	}
	if old < 0 {
		return old - 1
	}
	return -1
}

// Opponent is the pre-update snapshot of the other participant's ratings.
// Both sides of a pair must be updated from the same snapshots so the global
// rating exchange stays zero-sum.
type Opponent struct {
	Elo     float64
	TierElo float64
}

// Snapshot captures a fighter's rating state before the pair update.
func Snapshot(f *domain.Fighter) Opponent {
	return Opponent{Elo: f.Elo, TierElo: f.TierElo}
}

// Apply mutates f with the outcome of a settled match: tier bookkeeping,
// global and tier-scoped Elo, streak, best-streak high-water mark and the
// last-match timestamp.
//
// If the fighter shows up in a different tier than last recorded, the
// tier-scoped rating restarts from 1500 before the update; standing in a new
// bracket carries no assumption from the old one. The global rating never
// resets.
func Apply(f *domain.Fighter, opp Opponent, matchTier domain.Tier, bestStreakSoFar int, won bool, now time.Time) {
	prevTier := f.Tier
	tierElo := f.TierElo
	if matchTier != prevTier {
		tierElo = constants.StartingElo
	}

	f.Elo += Delta(f.Elo, opp.Elo, won)
	f.TierElo = tierElo + Delta(tierElo, opp.TierElo, won)

	f.CurrentStreak = NextStreak(f.CurrentStreak, won)
	f.BestStreak = maxInt(f.BestStreak, bestStreakSoFar, absInt(f.CurrentStreak))

	f.Tier = matchTier
	f.PrevTier = prevTier
	t := now
	f.LastMatchAt = &t
	f.UpdatedAt = now
}

func maxInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
