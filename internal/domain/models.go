package domain

import (
	"time"
)

// Tier is the ordinal skill bracket a fighter is currently classified into.
type Tier string

const (
	TierX Tier = "X" // gimmick bracket, outcome variance uncorrelated with skill
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierP Tier = "P" // potato bracket, treated as pure chance
	TierU Tier = "U" // unrated / unknown
)

// Unrated reports whether betting on this bracket is defined as pure chance.
func (t Tier) Unrated() bool {
	return t == TierP || t == TierU || t == ""
}

// Gimmick reports whether exposure in this bracket must be hard-capped.
func (t Tier) Gimmick() bool {
	return t == TierX
}

type MatchFormat string

const (
	FormatMatchmaking MatchFormat = "matchmaking"
	FormatTournament  MatchFormat = "tournament"
	FormatExhibition  MatchFormat = "exhibition"
)

// Eligible reports whether matches of this format count toward statistics
// and model training. Exhibition results are ignored entirely.
func (f MatchFormat) Eligible() bool {
	return f == FormatMatchmaking || f == FormatTournament
}

type Fighter struct {
	ID            int64
	Name          string
	Tier          Tier
	PrevTier      Tier
	Elo           float64
	TierElo       float64
	CurrentStreak int
	BestStreak    int
	LastMatchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Match is immutable once recorded. Winner must equal one of the two
// participants; a match missing either pool total or a winner is not
// eligible for statistics.
type Match struct {
	ID          int64
	Date        time.Time
	FighterRed  int64
	FighterBlue int64
	Winner      int64
	Format      MatchFormat
	Tier        Tier
	BetRed      int64
	BetBlue     int64
	StreakRed   int
	StreakBlue  int
	Colour      string

	// Bot bookkeeping, only present when the bot wagered on this match.
	MyBetOn        *string
	MyWager        *int64
	MatchBalance   *int64
	ExpectedPayout *int64

	CreatedAt time.Time
}

// CoefficientSet holds the scoring weights fitted by the offline trainer.
// Sets are replaced wholesale, never partially updated. Streak is optional
// for sets persisted before the streak feature existed and defaults to 0.
type CoefficientSet struct {
	ID        int64
	CreatedAt time.Time
	Intercept float64
	TierElo   float64
	Streak    float64
	H2H       float64
	Comp      float64
}

type Side string

const (
	SideRed  Side = "red"
	SideBlue Side = "blue"
)

// Decision is a wager instruction: a positive stake, a side and the model's
// clamped confidence in that side.
type Decision struct {
	Stake      int64
	Side       Side
	Confidence float64
}

// CurrentMatch mirrors the match currently open for betting, shared between
// the bot loop and the read API.
type CurrentMatch struct {
	FighterRed  string
	FighterBlue string
	Tier        Tier
	Format      MatchFormat
	UpdatedAt   time.Time
}
