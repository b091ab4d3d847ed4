// Package watchdog supervises the bot loop: it restarts the loop when it
// exits or when the heartbeat goes stale, rate-limited so a crash loop
// can't thrash.
package watchdog

import (
	"context"
	"errors"
	"time"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/notifier"
	"github.com/diegowsan/saltyboyC/internal/repository"

	"github.com/rs/zerolog"
)

type Supervisor struct {
	state    *repository.StateRepository
	notifier *notifier.Notifier
	logger   zerolog.Logger
}

func NewSupervisor(state *repository.StateRepository, n *notifier.Notifier, logger zerolog.Logger) *Supervisor {
	return &Supervisor{state: state, notifier: n, logger: logger}
}

// Run keeps the given loop alive until the parent context is cancelled.
func (s *Supervisor) Run(ctx context.Context, loop func(context.Context) error) error {
	var lastRestart time.Time

	for ctx.Err() == nil {
		err := s.runOnce(ctx, loop)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn().Err(err).Msg("bot loop stopped, scheduling restart")
		s.notifier.Send(ctx, "saltboy: bot loop restarting")

		// Refuse rapid restarts.
		if since := time.Since(lastRestart); since < constants.RestartCooldown {
			wait := constants.RestartCooldown - since
			s.logger.Info().Dur("wait", wait).Msg("cooling down before restart")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		lastRestart = time.Now()
	}
	return ctx.Err()
}

// runOnce runs the loop until it exits on its own or the heartbeat it is
// supposed to refresh goes stale, in which case the loop is cancelled.
func (s *Supervisor) runOnce(ctx context.Context, loop func(context.Context) error) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop(loopCtx) }()

	ticker := time.NewTicker(constants.WatchdogPollInterval)
	defer ticker.Stop()

	started := time.Now()
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-done
			return ctx.Err()

		case err := <-done:
			return err

		case <-ticker.C:
			if s.heartbeatStale(ctx, started) {
				s.logger.Warn().Msg("heartbeat stale, cancelling bot loop")
				cancel()
				return <-done
			}
			s.logger.Debug().Msg("services healthy")
		}
	}
}

func (s *Supervisor) heartbeatStale(ctx context.Context, started time.Time) bool {
	beat, err := s.state.LastBeat(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		// No heartbeat yet; only suspicious once the loop has had time
		// to write one.
		return time.Since(started) > constants.HeartbeatStaleAfter*2
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read heartbeat")
		return false
	}
	return time.Since(beat) > constants.HeartbeatStaleAfter
}
