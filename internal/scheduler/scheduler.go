// Package scheduler implements the schedule sweep loop: read the schedule
// table, evaluate cron due-ness and republish due entries to the broadcast
// channel, gated on subscriber presence.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/metrics"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// Config controls Scheduler behavior.
type Config struct {
	// Channel is the broadcast channel due entries are published to.
	Channel string
	// Interval is the minimum gap between two sweeps.
	Interval time.Duration
	// Timeout is the sleep between loop iterations.
	Timeout time.Duration
	// Location fixes the zone for due-ness comparisons. A single global
	// offset for now; per-user timezones would replace it.
	Location *time.Location
}

// Scheduler is the long-lived sweep loop. It owns no request-scoped
// resources and talks to the world only through the schedule store and the
// broadcaster.
type Scheduler struct {
	schedules   supervisor.ScheduleStore
	broadcaster supervisor.Broadcaster
	clock       supervisor.Clock
	cfg         Config
	logger      *zap.Logger

	prevRun time.Time
}

// New constructs a Scheduler.
func New(
	schedules supervisor.ScheduleStore,
	broadcaster supervisor.Broadcaster,
	clock supervisor.Clock,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		schedules:   schedules,
		broadcaster: broadcaster,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run blocks, sweeping the schedule table until the context is canceled.
// Cancellation is observed between ticks, never mid-publish.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("starting scheduler job")
	for {
		if done := s.tick(ctx); done {
			break
		}
	}
	s.logger.Info("stopped scheduler job")
}

// tick performs one loop iteration and reports whether the loop should
// exit. Transient errors are contained here; they never escape the loop.
func (s *Scheduler) tick(ctx context.Context) bool {
	if !s.prevRun.IsZero() && s.prevRun.Add(s.cfg.Interval).After(s.clock.Now()) {
		return s.sleep(ctx)
	}

	subs, err := s.broadcaster.SubscriberCount(ctx, s.cfg.Channel)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		s.logger.Error("subscriber count failed", zap.Error(err))
		metrics.ObserveSweep("error")
		return s.sleep(ctx)
	}
	if subs < 1 {
		s.logger.Warn("no subscribers on the broadcast channel, skipping iteration",
			zap.String("channel", s.cfg.Channel),
		)
		metrics.ObserveSweep("gated")
		return s.sleep(ctx)
	}

	s.logger.Debug("starting new scheduler iteration")
	if err := s.sweep(ctx); err != nil {
		if ctx.Err() != nil {
			return true
		}
		s.logger.Error("unexpected error in scheduler sweep", zap.Error(err))
		metrics.ObserveSweep("error")
	} else {
		metrics.ObserveSweep("ok")
	}
	s.prevRun = s.clock.Now()
	s.logger.Debug("finished scheduler iteration")

	return ctx.Err() != nil
}

// sweep evaluates every schedule row and publishes the due ones. A row is
// due when it is active, not deleted, and its cron's next trigger after
// last_run has passed. Cron fields are read in the configured location, so
// last_run is shifted there before the trigger is computed. last_run
// advances immediately after a successful publish so the row does not
// re-fire next tick.
func (s *Scheduler) sweep(ctx context.Context) error {
	entries, err := s.schedules.List(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("pulled scheduling records", zap.Int("count", len(entries)))

	now := s.clock.Now().In(s.cfg.Location)
	for _, entry := range entries {
		if !entry.Active || entry.Deleted {
			continue
		}
		schedule, err := cron.ParseStandard(entry.Cron)
		if err != nil {
			s.logger.Error("invalid cron expression",
				zap.String("schedule_id", entry.ScheduleID.String()),
				zap.String("cron", entry.Cron),
				zap.Error(err),
			)
			continue
		}
		if schedule.Next(entry.LastRun.In(s.cfg.Location)).After(now) {
			continue
		}

		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		s.logger.Debug("publishing scheduling entry",
			zap.String("schedule_id", entry.ScheduleID.String()),
			zap.String("channel", s.cfg.Channel),
		)
		if err := s.broadcaster.Publish(ctx, s.cfg.Channel, payload); err != nil {
			return err
		}
		metrics.ObserveEventPublished()

		entry.LastRun = now
		if err := s.schedules.Update(ctx, entry, []string{"last_run"}); err != nil {
			return err
		}
	}
	return nil
}

// sleep waits out the loop timeout and reports whether the loop should
// exit.
func (s *Scheduler) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		s.logger.Debug("received cancel in the scheduler, stopping")
		return true
	case <-time.After(s.cfg.Timeout):
		return false
	}
}
