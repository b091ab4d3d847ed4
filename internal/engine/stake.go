package engine

import (
	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
)

// MinimalStake is the fallback wager for matchups the model refuses to
// score: unknown or unrated fighters. One unit on red at neutral confidence.
func MinimalStake() domain.Decision {
	return domain.Decision{Stake: 1, Side: domain.SideRed, Confidence: 0.5}
}

// SizeStake converts a clamped win probability and the account balance into
// a bounded wager. The stake is always in [1, MaxBetCap], and additionally
// under GimmickBetCap when either fighter is in the gimmick bracket.
func SizeStake(probRed float64, balance int64, red, blue *domain.Fighter) domain.Decision {
	if red == nil || blue == nil || red.Tier.Unrated() || blue.Tier.Unrated() {
		return MinimalStake()
	}

	side := domain.SideBlue
	confidence := 1 - probRed
	if probRed > 0.5 {
		side = domain.SideRed
		confidence = probRed
	}

	// Wealth preservation: size against at most the effective cap so a
	// large bankroll doesn't pin every wager at the ceiling.
	effective := balance
	if effective > constants.EffectiveBalanceCap {
		effective = constants.EffectiveBalanceCap
	}

	strength := (confidence - 0.5) * 2
	stake := int64(float64(effective) * constants.BaseBetFraction * strength)

	if red.Tier.Gimmick() || blue.Tier.Gimmick() {
		// Gimmick outcomes don't correlate with skill; exposure is
		// bounded no matter what the model thinks.
		if stake > constants.GimmickBetCap {
			stake = constants.GimmickBetCap
		}
	}

	if stake < 1 {
		stake = 1
	}
	if stake > constants.MaxBetCap {
		stake = constants.MaxBetCap
	}

	return domain.Decision{Stake: stake, Side: side, Confidence: confidence}
}
