package saltyboy

import (
	"testing"
	"time"
)

func TestParseMatchInfo(t *testing.T) {
	body := []byte(`{
		"fighter_red_info": {
			"id": 101, "name": "Kula Diamond", "tier": "A",
			"elo": 1532.5, "tier_elo": 1610.0,
			"matches": [
				{"id": 9001, "fighter_red": 101, "fighter_blue": 202, "winner": 101,
				 "match_format": "matchmaking", "tier": "A", "date": "2025-06-01T12:00:00",
				 "streak_red": 2, "streak_blue": -1, "bet_red": 15000, "bet_blue": null,
				 "colour": "Red"}
			]
		},
		"fighter_blue_info": null
	}`)

	info, err := ParseMatchInfo(body)
	if err != nil {
		t.Fatalf("ParseMatchInfo failed: %v", err)
	}
	if info.FighterBlueInfo != nil {
		t.Error("blue side should be nil for a fighter the api has never seen")
	}

	red := info.FighterRedInfo
	if red == nil {
		t.Fatal("red side missing")
	}
	if red.ID != 101 || red.Name != "Kula Diamond" || red.TierElo != 1610.0 {
		t.Errorf("red info mismatched: %+v", red)
	}
	if len(red.Matches) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(red.Matches))
	}

	m := red.Matches[0]
	if m.BetRed == nil || *m.BetRed != 15000 {
		t.Errorf("bet_red = %v, want 15000", m.BetRed)
	}
	if m.BetBlue != nil {
		t.Errorf("null bet_blue should stay nil, got %v", *m.BetBlue)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !m.Date.Time.Equal(want) {
		t.Errorf("date = %v, want %v", m.Date.Time, want)
	}
}

func TestAPITimeLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{`"2025-06-01T12:00:00"`, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{`"2025-06-01T12:00:00Z"`, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{`"2025-06-01T12:00:00+02:00"`, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), true},
		{`"yesterday"`, time.Time{}, false},
	}
	for _, tt := range tests {
		var at APITime
		err := at.UnmarshalJSON([]byte(tt.raw))
		if tt.ok != (err == nil) {
			t.Errorf("UnmarshalJSON(%s) error = %v", tt.raw, err)
			continue
		}
		if tt.ok && !at.Time.Equal(tt.want) {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.raw, at.Time, tt.want)
		}
	}
}
