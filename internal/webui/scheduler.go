package webui

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/wikiscout/wikiscout/internal/session"
)

const (
	defaultSchedulerInterval = 15 * time.Minute
	minSchedulerInterval     = time.Minute
)

// SchedulerRunFunc performs one scheduled refresh.
type SchedulerRunFunc func(ctx context.Context) error

// Scheduler re-runs the last successful query on a fixed interval so an
// open dashboard keeps showing fresh results.
type Scheduler struct {
	mu        sync.RWMutex
	enabled   bool
	interval  time.Duration
	nextRunAt time.Time
	lastRunAt time.Time
	store     *session.Store
	notifier  session.Notifier
	runFunc   SchedulerRunFunc
	logger    *log.Logger
	cancel    context.CancelFunc
	ticker    *time.Ticker
}

// NewScheduler creates a new scheduler. The notifier may be nil.
func NewScheduler(store *session.Store, notifier session.Notifier, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval < minSchedulerInterval {
		interval = defaultSchedulerInterval
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Scheduler{
		enabled:  false,
		interval: interval,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// SetRunFunc installs the refresh callback invoked on each tick.
func (s *Scheduler) SetRunFunc(fn SchedulerRunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runFunc = fn
}

// Start enables periodic refreshes. Without a run function it stays
// disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return nil
	}

	if s.runFunc == nil {
		s.logger.Println("Scheduler: no run function set")
		return nil
	}

	s.enabled = true
	s.nextRunAt = time.Now().Add(s.interval)

	schedulerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.ticker = time.NewTicker(s.interval)

	go s.loop(schedulerCtx)

	s.logger.Printf("Scheduler started with interval: %v, next refresh at: %s",
		s.interval, s.nextRunAt.Format("15:04:05"))

	s.sendSchedulerEvent(s.stateLocked())

	return nil
}

// Stop disables refreshes and releases the ticker.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}

	s.enabled = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.nextRunAt = time.Time{}

	s.logger.Println("Scheduler stopped")
	s.sendSchedulerEvent(s.stateLocked())
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		s.mu.RLock()
		ticker := s.ticker
		s.mu.RUnlock()

		if ticker == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	runFunc := s.runFunc
	if !s.enabled || runFunc == nil {
		s.mu.Unlock()
		return
	}

	// Skip while a user-triggered operation is in flight
	if s.store != nil && s.store.IsBusy() {
		s.logger.Println("Scheduler: skipping refresh, an operation is already in flight")
		s.nextRunAt = time.Now().Add(s.interval)
		s.mu.Unlock()
		s.sendSchedulerEvent(s.GetState())
		return
	}

	s.lastRunAt = time.Now()
	s.nextRunAt = time.Now().Add(s.interval)
	s.mu.Unlock()

	s.sendSchedulerEvent(s.GetState())

	s.logger.Println("Scheduler: refreshing last query")
	if err := runFunc(ctx); err != nil {
		s.logger.Printf("Scheduler: refresh failed: %v", err)
	}
}

// SetInterval changes the refresh cadence, resetting the ticker when
// running. Intervals below the minimum are raised to it.
func (s *Scheduler) SetInterval(interval time.Duration) error {
	if interval < minSchedulerInterval {
		interval = minSchedulerInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = interval

	if s.enabled && s.ticker != nil {
		s.ticker.Reset(interval)
		s.nextRunAt = time.Now().Add(interval)
	}

	s.logger.Printf("Scheduler interval updated to: %v", interval)
	s.sendSchedulerEvent(s.stateLocked())

	return nil
}

// GetState snapshots the scheduler for the status partial.
func (s *Scheduler) GetState() *SchedulerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// stateLocked builds a state snapshot. Callers must hold mu.
func (s *Scheduler) stateLocked() *SchedulerState {
	return &SchedulerState{
		Enabled:   s.enabled,
		Interval:  s.interval,
		NextRunAt: s.nextRunAt,
		LastRunAt: s.lastRunAt,
	}
}

func (s *Scheduler) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// sendSchedulerEvent pushes a scheduler state snapshot via SSE. The
// snapshot is built by the caller so this never re-locks mu.
func (s *Scheduler) sendSchedulerEvent(state *SchedulerState) {
	if s.notifier != nil {
		s.notifier.Notify(EventTypeSchedulerTick, state)
	}
}
