package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/saltyboy"

	"github.com/rs/zerolog"
)

func apiFighter(id int64, name string, tier string, elo, tierElo float64) *saltyboy.FighterInfo {
	return &saltyboy.FighterInfo{ID: id, Name: name, Tier: tier, Elo: elo, TierElo: tierElo}
}

func TestSyncFighterImportsUnknown(t *testing.T) {
	env := newTestEnv(t)
	s := NewImportService(env.fighters, env.matches, env.metrics, zerolog.Nop())
	ctx := context.Background()

	if err := s.SyncFighter(ctx, apiFighter(777, "Gato Del Sol", "S", 1620, 1585)); err != nil {
		t.Fatalf("SyncFighter failed: %v", err)
	}

	f, err := env.fighters.GetByID(ctx, 777)
	if err != nil {
		t.Fatalf("imported fighter not found: %v", err)
	}
	if f.Name != "Gato Del Sol" || f.Tier != domain.TierS || f.Elo != 1620 || f.TierElo != 1585 {
		t.Errorf("imported fighter mismatched: %+v", f)
	}
}

func TestSyncFighterOverwritesStats(t *testing.T) {
	env := newTestEnv(t)
	s := NewImportService(env.fighters, env.matches, env.metrics, zerolog.Nop())
	ctx := context.Background()

	if err := s.SyncFighter(ctx, apiFighter(777, "Gato Del Sol", "A", 1500, 1500)); err != nil {
		t.Fatalf("SyncFighter failed: %v", err)
	}
	if err := s.SyncFighter(ctx, apiFighter(777, "Gato Del Sol", "S", 1700, 1650)); err != nil {
		t.Fatalf("SyncFighter failed: %v", err)
	}

	f, err := env.fighters.GetByID(ctx, 777)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if f.Elo != 1700 || f.TierElo != 1650 {
		t.Errorf("stats not overwritten: %+v", f)
	}
	if f.Tier != domain.TierS || f.PrevTier != domain.TierA {
		t.Errorf("tier promotion not tracked: tier %s, prev %s", f.Tier, f.PrevTier)
	}
}

func TestSyncFighterAdoptsLocalRow(t *testing.T) {
	env := newTestEnv(t)
	s := NewImportService(env.fighters, env.matches, env.metrics, zerolog.Nop())
	ctx := context.Background()

	// Created locally before the api was reachable, so the row carries a
	// generated id.
	local, err := env.fighters.Create(ctx, "Gato Del Sol", domain.TierA, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	opp, err := env.fighters.Create(ctx, "Opponent", domain.TierA, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m := domain.Match{
		ID: 1, Date: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FighterRed: local.ID, FighterBlue: opp.ID, Winner: local.ID,
		Format: domain.FormatMatchmaking, Tier: domain.TierA,
	}
	if err := env.matches.Insert(ctx, &m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := s.SyncFighter(ctx, apiFighter(555, "Gato Del Sol", "A", 1610, 1590)); err != nil {
		t.Fatalf("SyncFighter failed: %v", err)
	}

	if _, err := env.fighters.GetByID(ctx, local.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("local id should be gone, got %v", err)
	}
	f, err := env.fighters.GetByID(ctx, 555)
	if err != nil {
		t.Fatalf("fighter not found under api id: %v", err)
	}
	if f.Name != "Gato Del Sol" || f.TierElo != 1590 {
		t.Errorf("adopted fighter mismatched: %+v", f)
	}

	moved, err := env.matches.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if moved.FighterRed != 555 || moved.Winner != 555 {
		t.Errorf("match references not rewritten: %+v", moved)
	}
}

func TestBackfillMatches(t *testing.T) {
	env := newTestEnv(t)
	s := NewImportService(env.fighters, env.matches, env.metrics, zerolog.Nop())
	ctx := context.Background()

	if err := s.SyncFighter(ctx, apiFighter(101, "Red Guy", "A", 1500, 1500)); err != nil {
		t.Fatalf("SyncFighter failed: %v", err)
	}
	if err := s.SyncFighter(ctx, apiFighter(202, "Blue Guy", "A", 1500, 1500)); err != nil {
		t.Fatalf("SyncFighter failed: %v", err)
	}

	existing := domain.Match{
		ID: 9000, Date: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		FighterRed: 101, FighterBlue: 202, Winner: 101,
		Format: domain.FormatMatchmaking, Tier: domain.TierA,
	}
	if err := env.matches.Insert(ctx, &existing); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	pool := int64(12000)
	date := saltyboy.APITime{Time: time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)}
	info := &saltyboy.FighterInfo{
		ID: 101, Name: "Red Guy", Tier: "A",
		Matches: []saltyboy.MatchRecord{
			// already stored, must not duplicate
			{ID: 9000, FighterRed: 101, FighterBlue: 202, Winner: 101, Format: "matchmaking", Tier: "A", Date: date},
			// names a fighter we have never seen
			{ID: 9001, FighterRed: 101, FighterBlue: 999, Winner: 999, Format: "matchmaking", Tier: "A", Date: date},
			// genuinely new, null blue pool
			{ID: 9002, FighterRed: 202, FighterBlue: 101, Winner: 101, Format: "tournament", Tier: "A",
				Date: date, StreakRed: -1, StreakBlue: 3, BetRed: &pool, Colour: "Blue"},
		},
	}

	inserted, err := s.BackfillMatches(ctx, info)
	if err != nil {
		t.Fatalf("BackfillMatches failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}

	m, err := env.matches.GetByID(ctx, 9002)
	if err != nil {
		t.Fatalf("backfilled match not found: %v", err)
	}
	if m.Format != domain.FormatTournament || m.BetRed != 12000 || m.BetBlue != 0 {
		t.Errorf("backfilled match mismatched: %+v", m)
	}
	if _, err := env.matches.GetByID(ctx, 9001); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("match with unknown participant should be skipped, got %v", err)
	}

	n, err := env.matches.CountEligible(ctx)
	if err != nil {
		t.Fatalf("CountEligible failed: %v", err)
	}
	if n != 2 {
		t.Errorf("eligible count = %d, want 2", n)
	}
}
