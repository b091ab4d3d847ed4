package engine

import (
	"math"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
)

// Score combines the features through the fitted weights and a logistic
// transform into red's estimated win probability. The estimate is clamped to
// the [0.15, 0.85] skepticism band: no single bet may be treated as more
// than 85% certain, however extreme the linear score.
func Score(f Features, w *domain.CoefficientSet) float64 {
	z := w.Intercept +
		w.TierElo*f.RatingDiff +
		w.Streak*f.StreakDiff +
		w.H2H*f.H2H +
		w.Comp*f.Comp

	return clampProbability(logistic(z))
}

func logistic(z float64) float64 {
	// math.Exp saturates rather than erroring, but guard the extremes
	// explicitly so the result is exact 0 or 1 instead of a denormal.
	switch {
	case z > 700:
		return 1.0
	case z < -700:
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

func clampProbability(p float64) float64 {
	if p > constants.ConfidenceCeil {
		return constants.ConfidenceCeil
	}
	if p < constants.ConfidenceFloor {
		return constants.ConfidenceFloor
	}
	return p
}
