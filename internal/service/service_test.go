package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/diegowsan/saltyboyC/internal/database"
	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/engine"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/trainer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type testEnv struct {
	db       *sql.DB
	fighters *repository.FighterRepository
	matches  *repository.MatchRepository
	weights  *repository.WeightRepository
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	nop := zerolog.Nop()
	return &testEnv{
		db:       db,
		fighters: repository.NewFighterRepository(db, nop),
		matches:  repository.NewMatchRepository(db, nop),
		weights:  repository.NewWeightRepository(db, nop),
		metrics:  metrics.NewWith(prometheus.NewRegistry()),
	}
}

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }

func observed(red, blue, winner string, tier domain.Tier, format domain.MatchFormat) ObservedMatch {
	return ObservedMatch{
		RedName: red, BlueName: blue, WinnerName: winner,
		Tier: tier, Format: format, Colour: "Red",
		BetRed: ptrInt64(1000), BetBlue: ptrInt64(2000),
		StreakRed: ptrInt(0), StreakBlue: ptrInt(0),
	}
}

func TestRecordOutcomeCreatesAndRates(t *testing.T) {
	env := newTestEnv(t)
	s := NewSettlementService(env.fighters, env.matches, env.metrics, zerolog.Nop())
	ctx := context.Background()

	obs := observed("Kula Diamond", "Shin Akuma", "Kula Diamond", domain.TierA, domain.FormatMatchmaking)
	if err := s.RecordOutcome(ctx, obs); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}

	red, err := env.fighters.GetByName(ctx, "Kula Diamond")
	if err != nil {
		t.Fatalf("winner not created: %v", err)
	}
	blue, err := env.fighters.GetByName(ctx, "Shin Akuma")
	if err != nil {
		t.Fatalf("loser not created: %v", err)
	}

	// First meeting at equal ratings moves 16 points each way.
	if red.Elo != 1516 || blue.Elo != 1484 {
		t.Errorf("ratings = %f / %f, want 1516 / 1484", red.Elo, blue.Elo)
	}
	if red.CurrentStreak != 1 || blue.CurrentStreak != -1 {
		t.Errorf("streaks = %d / %d", red.CurrentStreak, blue.CurrentStreak)
	}
	if red.LastMatchAt == nil || blue.LastMatchAt == nil {
		t.Error("last match timestamps not set")
	}

	n, err := env.matches.CountEligible(ctx)
	if err != nil {
		t.Fatalf("CountEligible failed: %v", err)
	}
	if n != 1 {
		t.Errorf("match count = %d, want 1", n)
	}
}

func TestRecordOutcomeSkipsIneligible(t *testing.T) {
	env := newTestEnv(t)
	s := NewSettlementService(env.fighters, env.matches, env.metrics, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		obs  ObservedMatch
	}{
		{"exhibition", observed("A", "B", "A", domain.TierA, domain.FormatExhibition)},
		{"missing winner", observed("A", "B", "", domain.TierA, domain.FormatMatchmaking)},
		{"winner not a participant", observed("A", "B", "C", domain.TierA, domain.FormatMatchmaking)},
		{"missing pools", func() ObservedMatch {
			o := observed("A", "B", "A", domain.TierA, domain.FormatMatchmaking)
			o.BetRed = nil
			return o
		}()},
		{"missing streaks", func() ObservedMatch {
			o := observed("A", "B", "A", domain.TierA, domain.FormatMatchmaking)
			o.StreakBlue = nil
			return o
		}()},
		{"negative pool", func() ObservedMatch {
			o := observed("A", "B", "A", domain.TierA, domain.FormatMatchmaking)
			o.BetRed = ptrInt64(-1)
			return o
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.RecordOutcome(ctx, tt.obs); err != nil {
				t.Fatalf("skips must not error: %v", err)
			}
		})
	}

	n, err := env.matches.CountEligible(ctx)
	if err != nil {
		t.Fatalf("CountEligible failed: %v", err)
	}
	if n != 0 {
		t.Errorf("skipped observations must not be recorded, got %d matches", n)
	}
}

func TestDecideUnknownFightersBetMinimum(t *testing.T) {
	env := newTestEnv(t)
	holder := NewCoefficientHolder(env.weights, zerolog.Nop())
	d := NewDecisionService(env.fighters, engine.NewExtractor(env.matches), holder, env.metrics, zerolog.Nop())

	decision := d.Decide(context.Background(), "Never Seen", "Also Unknown", 1_000_000)
	if decision != engine.MinimalStake() {
		t.Errorf("unknown fighters should bet the minimum, got %+v", decision)
	}
}

func TestDecideRatedMatchup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	red, err := env.fighters.Create(ctx, "Strong", domain.TierA, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	red.TierElo = 1600
	if err := env.fighters.Update(ctx, red); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := env.fighters.Create(ctx, "Weak", domain.TierA, 0); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	holder := NewCoefficientHolder(env.weights, zerolog.Nop())
	d := NewDecisionService(env.fighters, engine.NewExtractor(env.matches), holder, env.metrics, zerolog.Nop())

	decision := d.Decide(ctx, "Strong", "Weak", 1_000_000)
	if decision.Side != domain.SideRed {
		t.Errorf("100 point favorite should be backed, got %s", decision.Side)
	}
	if decision.Confidence <= 0.5 || decision.Confidence > 0.85 {
		t.Errorf("confidence out of band: %f", decision.Confidence)
	}
	if decision.Stake <= 1 || decision.Stake >= 300_000 {
		t.Errorf("stake should fall strictly inside the bounds, got %d", decision.Stake)
	}
}

func TestCoefficientHolderSeedsAndSwaps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := NewCoefficientHolder(env.weights, zerolog.Nop())
	if got := *holder.Current(); got != DefaultCoefficients {
		t.Errorf("empty store should seed defaults, got %+v", got)
	}

	persisted := &domain.CoefficientSet{Intercept: 0.1, TierElo: 0.004, Streak: 0.02, H2H: 1.1, Comp: 0.3}
	if err := env.weights.Insert(ctx, persisted); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	reloaded := NewCoefficientHolder(env.weights, zerolog.Nop())
	if reloaded.Current().H2H != 1.1 {
		t.Errorf("holder should seed from the persisted set, got %+v", reloaded.Current())
	}

	next := &domain.CoefficientSet{Intercept: 0.2}
	holder.Swap(next)
	if holder.Current() != next {
		t.Error("swap should publish the new set")
	}
}

func TestRetrainSingleFlight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Enough eligible matches to clear the warm-up threshold, with both
	// outcomes represented.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		winner := int64(10)
		if i%3 == 0 {
			winner = 20
		}
		m := domain.Match{
			ID: int64(i + 1), Date: base.Add(time.Duration(i) * time.Minute),
			FighterRed: 10, FighterBlue: 20, Winner: winner,
			Format: domain.FormatMatchmaking, Tier: domain.TierA,
		}
		if err := env.matches.Insert(ctx, &m); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	holder := NewCoefficientHolder(env.weights, zerolog.Nop())
	s := NewRetrainService(trainer.New(env.matches, zerolog.Nop()), env.weights, holder, env.metrics, zerolog.Nop())

	// A trigger arriving while a fit is in flight is dropped: no new set,
	// nothing persisted.
	s.running.Store(true)
	cs, err := s.Retrain(ctx)
	if err != nil || cs != nil {
		t.Fatalf("overlapping retrain should be skipped, got %v, %v", cs, err)
	}
	if _, err := env.weights.Latest(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("skipped retrain must not persist weights, got %v", err)
	}
	s.running.Store(false)

	cs, err = s.Retrain(ctx)
	if err != nil {
		t.Fatalf("Retrain failed: %v", err)
	}
	if cs == nil {
		t.Fatal("expected a fitted coefficient set above the warm-up threshold")
	}
	latest, err := env.weights.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.ID != cs.ID {
		t.Errorf("fitted set not persisted: %+v", latest)
	}
	if holder.Current().Intercept != cs.Intercept {
		t.Error("fitted set not swapped live")
	}
}

func TestDecideUnratedTierSkipsScoring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.fighters.Create(ctx, "Potato One", domain.TierP, 0); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := env.fighters.Create(ctx, "Potato Two", domain.TierP, 0); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	holder := NewCoefficientHolder(env.weights, zerolog.Nop())
	d := NewDecisionService(env.fighters, engine.NewExtractor(env.matches), holder, env.metrics, zerolog.Nop())

	if decision := d.Decide(ctx, "Potato One", "Potato Two", 1_000_000); decision != engine.MinimalStake() {
		t.Errorf("unrated bracket should bet the minimum, got %+v", decision)
	}
}
