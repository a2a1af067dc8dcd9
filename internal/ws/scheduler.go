package ws

import (
	"context"
	"log/slog"
	"time"
)

// SchedulerOptions sets the period of each housekeeping tick. A non-positive
// interval disables that tick.
type SchedulerOptions struct {
	TypingSweep time.Duration
	Purge       time.Duration
	Status      time.Duration
	Logger      *slog.Logger
}

// Scheduler posts periodic housekeeping ticks to the hub. The hub does the
// work, so sweeps never race with event handling.
type Scheduler struct {
	hub    *Hub
	opts   SchedulerOptions
	logger *slog.Logger
	done   chan struct{}
}

func NewScheduler(hub *Hub, opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		hub:    hub,
		opts:   opts,
		logger: logger.With("component", "scheduler"),
		done:   make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	typing, stopTyping := newTicker(s.opts.TypingSweep)
	defer stopTyping()
	purge, stopPurge := newTicker(s.opts.Purge)
	defer stopPurge()
	status, stopStatus := newTicker(s.opts.Status)
	defer stopStatus()

	s.logger.Info("scheduler started", "typing_sweep", s.opts.TypingSweep, "purge", s.opts.Purge, "status", s.opts.Status)
	for {
		select {
		case <-ctx.Done():
			return
		case <-typing:
			s.post(TypingSweepTick{})
		case <-purge:
			s.post(PurgeTick{})
		case <-status:
			s.post(StatusTick{})
		}
	}
}

// Wait blocks until Run has returned.
func (s *Scheduler) Wait() {
	<-s.done
}

// post skips the tick when the hub is busy; the next one catches up.
func (s *Scheduler) post(ev Event) {
	if !s.hub.TryPost(ev) {
		s.logger.Debug("hub queue full, skipping tick", "tick", ev.eventName())
	}
}

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}
