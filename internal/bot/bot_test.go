package bot

import (
	"testing"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/twitch"

	"github.com/rs/zerolog"
)

func TestNewSlipIDAlwaysUsable(t *testing.T) {
	a := newSlipID(zerolog.Nop())
	b := newSlipID(zerolog.Nop())
	if a == "" || b == "" {
		t.Fatal("slip id must never be empty")
	}
	if a == b {
		t.Errorf("consecutive slip ids must differ, got %q twice", a)
	}
}

func TestExpectedPayout(t *testing.T) {
	tests := []struct {
		name     string
		locked   *twitch.LockedBet
		decision *domain.Decision
		want     int64
	}{
		{
			name:     "red underdog pays out the blue pool share",
			locked:   &twitch.LockedBet{BetRed: 1000, BetBlue: 3000},
			decision: &domain.Decision{Side: domain.SideRed, Stake: 100},
			want:     300,
		},
		{
			name:     "blue side swaps the pools",
			locked:   &twitch.LockedBet{BetRed: 3000, BetBlue: 1000},
			decision: &domain.Decision{Side: domain.SideBlue, Stake: 100},
			want:     300,
		},
		{
			name:     "no locked pools",
			locked:   nil,
			decision: &domain.Decision{Side: domain.SideRed, Stake: 100},
			want:     0,
		},
		{
			name:     "empty backing pool",
			locked:   &twitch.LockedBet{BetRed: 0, BetBlue: 1000},
			decision: &domain.Decision{Side: domain.SideRed, Stake: 100},
			want:     0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := &openMatch{locked: tt.locked, decision: tt.decision}
			if got := expectedPayout(current); got != tt.want {
				t.Errorf("expectedPayout = %d, want %d", got, tt.want)
			}
		})
	}
}
