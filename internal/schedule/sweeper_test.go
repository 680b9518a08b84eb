package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-notifier/internal/common/logger"
)

func TestNextRun(t *testing.T) {
	freetown, err := time.LoadLocation("Africa/Freetown")
	require.NoError(t, err)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 2, 25, 1, 0, 0, 0, freetown),
			loc:  freetown,
			want: time.Date(2026, 2, 25, 2, 30, 0, 0, freetown),
		},
		{
			name: "exactly at run time rolls over",
			now:  time.Date(2026, 2, 25, 2, 30, 0, 0, freetown),
			loc:  freetown,
			want: time.Date(2026, 2, 26, 2, 30, 0, 0, freetown),
		},
		{
			name: "month end",
			now:  time.Date(2026, 2, 28, 23, 0, 0, 0, freetown),
			loc:  freetown,
			want: time.Date(2026, 3, 1, 2, 30, 0, 0, freetown),
		},
		{
			name: "now given in another zone",
			now:  time.Date(2026, 2, 25, 1, 45, 0, 0, time.UTC),
			loc:  berlin,
			want: time.Date(2026, 2, 26, 2, 30, 0, 0, berlin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, 2, 30, tt.loc)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestSweeper_RunOnce_UsesLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	var got time.Time
	s := NewSweeper(func(_ context.Context, day time.Time) error {
		got = day
		return nil
	}, 2, 0, loc, logger.NewNoOpLogger())

	require.NoError(t, s.RunOnce(context.Background(), time.Date(2026, 2, 25, 22, 0, 0, 0, time.UTC)))
	assert.Equal(t, 26, got.Day())
}

func TestSweeper_RunOnce_RejectsOverlap(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := NewSweeper(func(context.Context, time.Time) error {
		close(started)
		<-release
		return nil
	}, 2, 0, time.UTC, logger.NewNoOpLogger())

	done := make(chan error, 1)
	go func() { done <- s.RunOnce(context.Background(), time.Now()) }()
	<-started

	assert.ErrorIs(t, s.RunOnce(context.Background(), time.Now()), ErrSweepRunning)
	close(release)
	assert.NoError(t, <-done)
}

func TestSweeper_Run_IntervalUntilCancelled(t *testing.T) {
	var runs int32
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(func(context.Context, time.Time) error {
		if atomic.AddInt32(&runs, 1) == 3 {
			cancel()
		}
		return errors.New("logged and ignored")
	}, 2, 0, time.UTC, logger.NewNoOpLogger(), WithInterval(time.Millisecond))

	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}
