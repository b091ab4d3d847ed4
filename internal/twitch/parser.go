// Package twitch listens to the SaltyBet chat announcer and turns its
// messages into typed match lifecycle events.
package twitch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/diegowsan/saltyboyC/internal/domain"
)

// Message is a parsed announcer event.
type Message interface {
	message()
}

// OpenBet announces a new match open for betting.
type OpenBet struct {
	Red    string
	Blue   string
	Tier   domain.Tier
	Format domain.MatchFormat
}

// LockedBet announces bets closing, with the final pool totals and each
// fighter's current streak.
type LockedBet struct {
	Red        string
	Blue       string
	StreakRed  int
	StreakBlue int
	BetRed     int64
	BetBlue    int64
}

// Win announces the match outcome.
type Win struct {
	Winner string
	Colour string // "Red" or "Blue"
}

func (OpenBet) message()   {}
func (LockedBet) message() {}
func (Win) message()       {}

var (
	openMatchmakingRe = regexp.MustCompile(`^Bets are OPEN for (.+?) vs (.+?)! \(([A-Z]) Tier\) \(matchmaking\)`)
	openTournamentRe  = regexp.MustCompile(`^Bets are OPEN for (.+?) vs (.+?)! \(([A-Z]) Tier\) tournament bracket!`)
	openExhibitionRe  = regexp.MustCompile(`^Bets are OPEN for (.+?) vs (.+?)!.*\(exhibition\)`)
	lockedRe          = regexp.MustCompile(`^Bets are locked\. (.+?) \((-?\d+)\) - \$([\d,]+), (.+?) \((-?\d+)\) - \$([\d,]+)`)
	winRe             = regexp.MustCompile(`^(.+?) wins! Payouts to Team (Red|Blue)\.`)
)

// ParseAnnouncement parses one announcer chat line. The second return value
// is false for chatter that isn't a lifecycle event.
func ParseAnnouncement(text string) (Message, bool) {
	if m := openMatchmakingRe.FindStringSubmatch(text); m != nil {
		return OpenBet{Red: m[1], Blue: m[2], Tier: domain.Tier(m[3]), Format: domain.FormatMatchmaking}, true
	}
	if m := openTournamentRe.FindStringSubmatch(text); m != nil {
		return OpenBet{Red: m[1], Blue: m[2], Tier: domain.Tier(m[3]), Format: domain.FormatTournament}, true
	}
	if m := openExhibitionRe.FindStringSubmatch(text); m != nil {
		return OpenBet{Red: m[1], Blue: m[2], Tier: domain.TierU, Format: domain.FormatExhibition}, true
	}
	if m := lockedRe.FindStringSubmatch(text); m != nil {
		streakRed, _ := strconv.Atoi(m[2])
		streakBlue, _ := strconv.Atoi(m[5])
		betRed, errRed := parseAmount(m[3])
		betBlue, errBlue := parseAmount(m[6])
		if errRed != nil || errBlue != nil {
			return nil, false
		}
		return LockedBet{
			Red: m[1], Blue: m[4],
			StreakRed: streakRed, StreakBlue: streakBlue,
			BetRed: betRed, BetBlue: betBlue,
		}, true
	}
	if m := winRe.FindStringSubmatch(text); m != nil {
		return Win{Winner: m[1], Colour: m[2]}, true
	}
	return nil, false
}

func parseAmount(raw string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
}
