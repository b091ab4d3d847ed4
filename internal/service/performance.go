package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/diegowsan/saltyboyC/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type PerformanceReport struct {
	Balance   int64   `json:"balance"`
	WinRate   float64 `json:"win_rate"`
	ROI       float64 `json:"roi"`
	TotalBets int     `json:"total_bets"`
}

// PerformanceService summarizes the bot's recent betting results for the
// read API dashboard.
type PerformanceService struct {
	matches *repository.MatchRepository
	logger  zerolog.Logger
}

func NewPerformanceService(matches *repository.MatchRepository, logger zerolog.Logger) *PerformanceService {
	return &PerformanceService{matches: matches, logger: logger}
}

// Report computes balance, win rate and return on investment over the last
// limit wagers. Payouts are pool-proportional: winning a bet on red pays
// wager * (blue pool / red pool).
func (s *PerformanceService) Report(ctx context.Context, limit int) (*PerformanceReport, error) {
	balance, err := s.matches.LatestBalance(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	bets, err := s.matches.ListRecentBets(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent bets: %w", err)
	}

	wins := 0
	invested := decimal.Zero
	netProfit := decimal.Zero

	for _, m := range bets {
		if m.MyWager == nil || m.MyBetOn == nil {
			continue
		}
		wager := decimal.NewFromInt(*m.MyWager)
		invested = invested.Add(wager)

		betRed := *m.MyBetOn == "red"
		won := (betRed && m.Winner == m.FighterRed) || (!betRed && m.Winner == m.FighterBlue)
		if !won {
			netProfit = netProfit.Sub(wager)
			continue
		}

		wins++
		poolMine, poolOther := m.BetRed, m.BetBlue
		if !betRed {
			poolMine, poolOther = m.BetBlue, m.BetRed
		}
		if poolMine > 0 {
			odds := decimal.NewFromInt(poolOther).Div(decimal.NewFromInt(poolMine))
			netProfit = netProfit.Add(wager.Mul(odds))
		}
	}

	report := &PerformanceReport{Balance: balance, TotalBets: len(bets)}
	if len(bets) > 0 {
		report.WinRate = float64(wins) / float64(len(bets)) * 100
	}
	if invested.IsPositive() {
		roi, _ := netProfit.Div(invested).Mul(decimal.NewFromInt(100)).Float64()
		report.ROI = roi
	}
	return report, nil
}
