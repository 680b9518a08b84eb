// Package schedule triggers the daily notification sweep at a fixed local
// time of day.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"dataset-notifier/internal/common/logger"
)

// ErrSweepRunning is returned when a sweep is requested while another one
// is still in progress.
var ErrSweepRunning = errors.New("sweep already running")

// SweepFunc evaluates and dispatches all scheduled notifications for day.
type SweepFunc func(ctx context.Context, day time.Time) error

type Sweeper struct {
	sweep    SweepFunc
	hour     int
	minute   int
	loc      *time.Location
	interval time.Duration
	now      func() time.Time
	logger   logger.Logger

	mu sync.Mutex
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithInterval replaces the daily schedule with a fixed interval. Used for
// local development.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.interval = d }
}

func NewSweeper(sweep SweepFunc, hour, minute int, loc *time.Location, log logger.Logger, opts ...Option) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	s := &Sweeper{
		sweep:  sweep,
		hour:   hour,
		minute: minute,
		loc:    loc,
		now:    time.Now,
		logger: logger.ForComponent(log, "sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run blocks until ctx is done, sweeping once per day.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval > 0 {
		s.runInterval(ctx)
		return
	}

	for {
		now := s.now()
		next := NextRun(now, s.hour, s.minute, s.loc)
		delay := next.Sub(now)
		s.logger.Info("scheduled next sweep", map[string]interface{}{
			"nextRun": next.Format(time.RFC3339),
			"delay":   delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Sweeper) runInterval(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("sweeper running on fixed interval", map[string]interface{}{"interval": s.interval.String()})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Sweeper) runLogged(ctx context.Context) {
	if err := s.RunOnce(ctx, s.now()); err != nil {
		s.logger.Error("daily sweep failed", map[string]interface{}{"error": err})
	}
}

// RunOnce sweeps for the calendar day of at in the sweeper's zone. It
// returns ErrSweepRunning instead of overlapping a running sweep.
func (s *Sweeper) RunOnce(ctx context.Context, at time.Time) error {
	if !s.mu.TryLock() {
		return ErrSweepRunning
	}
	defer s.mu.Unlock()

	day := at.In(s.loc)
	s.logger.Info("starting sweep", map[string]interface{}{"day": day.Format("2006-01-02")})
	return s.sweep(ctx, day)
}
