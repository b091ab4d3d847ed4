// Package bot runs the live betting loop: it consumes match lifecycle
// events from the chat listener, places wagers through the decision engine
// and settles outcomes back into the store.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/domain"
	"github.com/diegowsan/saltyboyC/internal/metrics"
	"github.com/diegowsan/saltyboyC/internal/notifier"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/saltyboy"
	"github.com/diegowsan/saltyboyC/internal/saltyclient"
	"github.com/diegowsan/saltyboyC/internal/service"
	"github.com/diegowsan/saltyboyC/internal/twitch"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type Bot struct {
	listener   *twitch.Listener
	state      *repository.StateRepository
	decisions  *service.DecisionService
	settlement *service.SettlementService
	retrain    *service.RetrainService
	importer   *service.ImportService
	salty      *saltyclient.Client
	stats      *saltyboy.Client
	notifier   *notifier.Notifier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func New(
	listener *twitch.Listener,
	state *repository.StateRepository,
	decisions *service.DecisionService,
	settlement *service.SettlementService,
	retrain *service.RetrainService,
	importer *service.ImportService,
	salty *saltyclient.Client,
	stats *saltyboy.Client,
	n *notifier.Notifier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Bot {
	return &Bot{
		listener:   listener,
		state:      state,
		decisions:  decisions,
		settlement: settlement,
		retrain:    retrain,
		importer:   importer,
		salty:      salty,
		stats:      stats,
		notifier:   n,
		metrics:    m,
		logger:     logger,
	}
}

// openMatch tracks the lifecycle of the match currently under consideration.
// There is exactly one open match at a time.
type openMatch struct {
	open     twitch.OpenBet
	locked   *twitch.LockedBet
	info     *saltyboy.MatchInfo
	decision *domain.Decision
	balance  int64
	slipID   string
}

func (b *Bot) Run(ctx context.Context) error {
	if err := b.salty.Login(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("betting disabled, running in observer mode")
		b.notifier.Send(ctx, "saltboy: login failed, observing only")
	}

	// Refit on process start so a long downtime doesn't leave stale weights.
	// The fit runs off the event loop; decisions use the current set until
	// the refreshed one is swapped in.
	go b.runRetrain(ctx)

	msgs, err := b.listener.Listen(ctx)
	if err != nil {
		return fmt.Errorf("failed to start chat listener: %w", err)
	}

	heartbeat := time.NewTicker(constants.HeartbeatInterval)
	defer heartbeat.Stop()

	var current *openMatch
	balance := int64(1000)
	settledSinceRetrain := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-heartbeat.C:
			if err := b.state.Beat(ctx); err != nil {
				b.logger.Error().Err(err).Msg("failed to update heartbeat")
			}

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("chat listener closed")
			}

			switch m := msg.(type) {
			case twitch.OpenBet:
				current = b.handleOpen(ctx, m, &balance)

			case twitch.LockedBet:
				if current == nil {
					continue
				}
				current.locked = &m
				b.logger.Info().
					Int64("bet_red", m.BetRed).
					Int64("bet_blue", m.BetBlue).
					Msg("bets locked")
				b.backfillHistory(ctx, current)

			case twitch.Win:
				if current == nil {
					continue
				}
				b.handleWin(ctx, current, m)
				current = nil

				settledSinceRetrain++
				if settledSinceRetrain >= constants.RetrainEvery {
					settledSinceRetrain = 0
					// Full-history refits take a while on a large log and
					// must never hold up the next wager decision.
					go b.runRetrain(ctx)
				}
			}
		}
	}
}

func (b *Bot) handleOpen(ctx context.Context, m twitch.OpenBet, balance *int64) *openMatch {
	b.logger.Info().
		Str("red", m.Red).
		Str("blue", m.Blue).
		Str("tier", string(m.Tier)).
		Str("format", string(m.Format)).
		Msg("new match")

	if err := b.state.SetCurrentMatch(ctx, domain.CurrentMatch{
		FighterRed:  m.Red,
		FighterBlue: m.Blue,
		Tier:        m.Tier,
		Format:      m.Format,
	}); err != nil {
		b.logger.Error().Err(err).Msg("failed to publish current match")
	}

	// Exhibitions are neither bet on nor recorded.
	if !m.Format.Eligible() {
		return nil
	}

	// Pull the upstream stats before deciding so the wager reflects the
	// freshest ratings available. A fetch failure is not fatal: the decision
	// engine falls back to whatever our own store holds.
	info := b.syncStats(ctx)

	if b.salty.LoggedIn() {
		if real, err := b.salty.Balance(ctx); err != nil {
			b.logger.Warn().Err(err).Msg("balance check failed, using last known")
		} else if real > 0 {
			*balance = real
			b.metrics.Balance.Set(float64(real))
		}
	}

	decision := b.decisions.Decide(ctx, m.Red, m.Blue, *balance)
	slipID := newSlipID(b.logger)

	if b.salty.LoggedIn() {
		if err := b.salty.PlaceBet(ctx, decision.Side, decision.Stake); err != nil {
			b.logger.Error().Err(err).Str("slip_id", slipID).Msg("failed to place bet")
			b.notifier.Send(ctx, fmt.Sprintf("saltboy: failed to place bet on %s vs %s", m.Red, m.Blue))
		} else {
			b.metrics.BetsPlaced.WithLabelValues(string(decision.Side)).Inc()
			b.metrics.StakeWagered.Add(float64(decision.Stake))
			b.logger.Info().
				Str("slip_id", slipID).
				Str("side", string(decision.Side)).
				Int64("stake", decision.Stake).
				Float64("confidence", decision.Confidence).
				Msg("wager submitted")
		}
	}

	return &openMatch{open: m, info: info, decision: &decision, balance: *balance, slipID: slipID}
}

// syncStats fetches the open match's fighter info from the stats API and
// reconciles both fighter records with it.
func (b *Bot) syncStats(ctx context.Context) *saltyboy.MatchInfo {
	info, err := b.stats.CurrentMatchInfo(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("stats api unavailable, deciding on local data")
		return nil
	}

	for _, fi := range []*saltyboy.FighterInfo{info.FighterRedInfo, info.FighterBlueInfo} {
		if err := b.importer.SyncFighter(ctx, fi); err != nil {
			b.logger.Error().Err(err).Msg("failed to sync fighter stats")
		}
	}
	return info
}

// backfillHistory imports both fighters' match histories once the pools are
// locked. The lull between lock and payout is the one stretch where the loop
// has nothing else to do.
func (b *Bot) backfillHistory(ctx context.Context, current *openMatch) {
	if current.info == nil {
		return
	}
	for _, fi := range []*saltyboy.FighterInfo{current.info.FighterRedInfo, current.info.FighterBlueInfo} {
		if _, err := b.importer.BackfillMatches(ctx, fi); err != nil {
			b.logger.Error().Err(err).Msg("history backfill failed")
		}
	}
}

func (b *Bot) handleWin(ctx context.Context, current *openMatch, win twitch.Win) {
	b.logger.Info().Str("winner", win.Winner).Str("colour", win.Colour).Str("slip_id", current.slipID).Msg("match over")

	obs := service.ObservedMatch{
		RedName:    current.open.Red,
		BlueName:   current.open.Blue,
		WinnerName: win.Winner,
		Tier:       current.open.Tier,
		Format:     current.open.Format,
		Colour:     win.Colour,
	}

	if current.locked != nil {
		obs.BetRed = &current.locked.BetRed
		obs.BetBlue = &current.locked.BetBlue
		obs.StreakRed = &current.locked.StreakRed
		obs.StreakBlue = &current.locked.StreakBlue
	}

	if current.decision != nil {
		side := string(current.decision.Side)
		obs.MyBetOn = &side
		obs.MyWager = &current.decision.Stake
		obs.Balance = &current.balance
		if payout := expectedPayout(current); payout > 0 {
			obs.ExpectedPayout = &payout
		}
	}

	if err := b.settlement.RecordOutcome(ctx, obs); err != nil {
		b.logger.Error().Err(err).Str("slip_id", current.slipID).Msg("settlement failed")
		b.notifier.Send(ctx, "saltboy: settlement failed, rating state may lag the match log")
	}
}

// expectedPayout estimates the profit if our side wins, proportional to the
// opposing pool.
func expectedPayout(current *openMatch) int64 {
	if current.locked == nil || current.decision == nil {
		return 0
	}
	mine, other := current.locked.BetRed, current.locked.BetBlue
	if current.decision.Side == domain.SideBlue {
		mine, other = other, mine
	}
	if mine <= 0 {
		return 0
	}
	return current.decision.Stake * other / mine
}

// newSlipID tags one wager lifecycle across log lines. Nanoid generation only
// fails when the OS entropy source does, so fall back to a timestamp rather
// than dropping the correlation id.
func newSlipID(logger zerolog.Logger) string {
	id, err := gonanoid.New()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to generate slip id, falling back to timestamp")
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id
}

func (b *Bot) runRetrain(ctx context.Context) {
	cs, err := b.retrain.Retrain(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("retrain failed")
		b.notifier.Send(ctx, "saltboy: retrain failed")
		return
	}
	if cs == nil {
		b.logger.Info().Msg("retrain skipped, not enough data")
		return
	}
	b.notifier.Send(ctx, fmt.Sprintf("saltboy: model refitted (intercept %.4f, rating %.5f, streak %.4f, h2h %.3f, comp %.3f)",
		cs.Intercept, cs.TierElo, cs.Streak, cs.H2H, cs.Comp))
}
