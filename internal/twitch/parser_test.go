package twitch

import (
	"testing"

	"github.com/diegowsan/saltyboyC/internal/domain"
)

func TestParseOpenMatchmaking(t *testing.T) {
	msg, ok := ParseAnnouncement("Bets are OPEN for Kula Diamond vs Shin Akuma! (A Tier) (matchmaking) www.saltybet.com")
	if !ok {
		t.Fatal("expected a match")
	}
	open, ok := msg.(OpenBet)
	if !ok {
		t.Fatalf("expected OpenBet, got %T", msg)
	}
	if open.Red != "Kula Diamond" || open.Blue != "Shin Akuma" {
		t.Errorf("fighters = %q vs %q", open.Red, open.Blue)
	}
	if open.Tier != domain.TierA || open.Format != domain.FormatMatchmaking {
		t.Errorf("tier=%s format=%s", open.Tier, open.Format)
	}
}

func TestParseOpenTournament(t *testing.T) {
	msg, ok := ParseAnnouncement("Bets are OPEN for Ryu vs Ken! (S Tier) tournament bracket! www.saltybet.com")
	if !ok {
		t.Fatal("expected a match")
	}
	open := msg.(OpenBet)
	if open.Format != domain.FormatTournament || open.Tier != domain.TierS {
		t.Errorf("tier=%s format=%s", open.Tier, open.Format)
	}
}

func TestParseOpenExhibition(t *testing.T) {
	msg, ok := ParseAnnouncement("Bets are OPEN for Team Alpha vs Team Beta! (Requested by somebody) (exhibition) www.saltybet.com")
	if !ok {
		t.Fatal("expected a match")
	}
	open := msg.(OpenBet)
	if open.Format != domain.FormatExhibition {
		t.Errorf("format = %s, want exhibition", open.Format)
	}
	if open.Red != "Team Alpha" || open.Blue != "Team Beta" {
		t.Errorf("fighters = %q vs %q", open.Red, open.Blue)
	}
}

func TestParseLocked(t *testing.T) {
	msg, ok := ParseAnnouncement("Bets are locked. Kula Diamond (4) - $1,234,567, Shin Akuma (-2) - $890,123")
	if !ok {
		t.Fatal("expected a match")
	}
	locked, ok := msg.(LockedBet)
	if !ok {
		t.Fatalf("expected LockedBet, got %T", msg)
	}
	if locked.Red != "Kula Diamond" || locked.Blue != "Shin Akuma" {
		t.Errorf("fighters = %q vs %q", locked.Red, locked.Blue)
	}
	if locked.StreakRed != 4 || locked.StreakBlue != -2 {
		t.Errorf("streaks = %d, %d", locked.StreakRed, locked.StreakBlue)
	}
	if locked.BetRed != 1234567 || locked.BetBlue != 890123 {
		t.Errorf("pools = %d, %d", locked.BetRed, locked.BetBlue)
	}
}

func TestParseWin(t *testing.T) {
	msg, ok := ParseAnnouncement("Shin Akuma wins! Payouts to Team Blue. 25 more matches until the next tournament!")
	if !ok {
		t.Fatal("expected a match")
	}
	win, ok := msg.(Win)
	if !ok {
		t.Fatalf("expected Win, got %T", msg)
	}
	if win.Winner != "Shin Akuma" || win.Colour != "Blue" {
		t.Errorf("winner=%q colour=%q", win.Winner, win.Colour)
	}
}

func TestParseChatterIgnored(t *testing.T) {
	lines := []string{
		"wtf was that",
		"The current tournament bracket can be found at saltybet.com",
		"Bets are OPEN for nothing",
		"somebody wins! no payouts though",
	}
	for _, line := range lines {
		if msg, ok := ParseAnnouncement(line); ok {
			t.Errorf("line %q unexpectedly parsed as %T", line, msg)
		}
	}
}
