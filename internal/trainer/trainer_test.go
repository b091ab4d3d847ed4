package trainer

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/rating"
)

func replayMatch(id int64, date time.Time, red, blue, winner int64, tier domain.Tier) domain.Match {
	return domain.Match{
		ID: id, Date: date,
		FighterRed: red, FighterBlue: blue, Winner: winner,
		Format: domain.FormatMatchmaking, Tier: tier,
	}
}

func TestBuildTrainingRowsFirstRowIsNeutral(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	matches := []domain.Match{replayMatch(1, base, 10, 20, 10, domain.TierA)}

	rows, labels := BuildTrainingRows(matches)
	if len(rows) != 1 || len(labels) != 1 {
		t.Fatalf("got %d rows, %d labels", len(rows), len(labels))
	}
	// Nothing is known before the first match: every feature is neutral.
	if !reflect.DeepEqual(rows[0], []float64{0, 0, 0, 0}) {
		t.Errorf("first row = %v, want all zeros", rows[0])
	}
	if labels[0] != 1.0 {
		t.Errorf("label = %f, want 1 for a red win", labels[0])
	}
}

func TestBuildTrainingRowsNoLookahead(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	matches := []domain.Match{
		replayMatch(1, base, 10, 20, 10, domain.TierA),
		replayMatch(2, base.Add(10*time.Minute), 10, 20, 10, domain.TierA),
	}

	rows, _ := BuildTrainingRows(matches)

	// The second row sees exactly one settled match: red gained what blue
	// lost, and red rides a fresh +1 streak against blue's -1.
	delta := rating.Delta(constants.StartingElo, constants.StartingElo, true)
	if math.Abs(rows[1][0]-2*delta) > 1e-9 {
		t.Errorf("rating diff = %f, want %f", rows[1][0], 2*delta)
	}
	if rows[1][1] != 2 {
		t.Errorf("streak diff = %f, want 2", rows[1][1])
	}
	// One prior meeting is below the head-to-head sample threshold.
	if rows[1][2] != 0 {
		t.Errorf("h2h = %f, want 0", rows[1][2])
	}
}

func TestBuildTrainingRowsDeterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var matches []domain.Match
	fighters := []int64{10, 20, 30, 40}
	for i := 0; i < 20; i++ {
		red := fighters[i%4]
		blue := fighters[(i+1)%4]
		winner := red
		if i%3 == 0 {
			winner = blue
		}
		matches = append(matches, replayMatch(int64(i+1), base.Add(time.Duration(i)*time.Minute), red, blue, winner, domain.TierA))
	}

	rowsA, labelsA := BuildTrainingRows(matches)
	rowsB, labelsB := BuildTrainingRows(matches)
	if !reflect.DeepEqual(rowsA, rowsB) || !reflect.DeepEqual(labelsA, labelsB) {
		t.Error("replay is not deterministic")
	}
}

func TestBuildTrainingRowsHeadToHead(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	matches := []domain.Match{
		replayMatch(1, base, 10, 20, 10, domain.TierA),
		replayMatch(2, base.Add(5*time.Minute), 10, 20, 10, domain.TierA),
		replayMatch(3, base.Add(10*time.Minute), 10, 20, 20, domain.TierA),
		replayMatch(4, base.Add(15*time.Minute), 10, 20, 10, domain.TierA),
	}

	rows, _ := BuildTrainingRows(matches)
	// Before match 4 red leads the series 2-1: 2/3 - 0.5.
	want := 2.0/3.0 - 0.5
	if math.Abs(rows[3][2]-want) > 1e-9 {
		t.Errorf("h2h = %f, want %f", rows[3][2], want)
	}
}

func TestBuildTrainingRowsStaleStreak(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	matches := []domain.Match{
		replayMatch(1, base, 10, 20, 10, domain.TierA),
		// Two days later both streaks have gone cold.
		replayMatch(2, base.Add(48*time.Hour), 10, 20, 10, domain.TierA),
	}

	rows, _ := BuildTrainingRows(matches)
	if rows[1][1] != 0 {
		t.Errorf("streak diff after idle gap = %f, want 0", rows[1][1])
	}
}

func TestBuildTrainingRowsTierChangeResetsRating(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	matches := []domain.Match{
		replayMatch(1, base, 10, 20, 10, domain.TierB),
		replayMatch(2, base.Add(5*time.Minute), 10, 20, 10, domain.TierB),
		// Both move up a bracket; their tier ratings restart from 1500
		// when this match settles, so the row after it is neutral again.
		replayMatch(3, base.Add(10*time.Minute), 10, 20, 10, domain.TierA),
		replayMatch(4, base.Add(15*time.Minute), 10, 20, 10, domain.TierA),
	}

	rows, _ := BuildTrainingRows(matches)

	// Row 3 (the tier-change match) still sees the old bracket's ratings.
	if rows[2][0] <= 0 {
		t.Errorf("tier-change row should still see the old rating lead, got %f", rows[2][0])
	}
	// Row 4 sees ratings rebuilt from 1500 plus a single exchange.
	delta := rating.Delta(constants.StartingElo, constants.StartingElo, true)
	if math.Abs(rows[3][0]-2*delta) > 1e-9 {
		t.Errorf("post-reset rating diff = %f, want %f", rows[3][0], 2*delta)
	}
}
