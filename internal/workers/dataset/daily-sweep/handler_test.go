package dailysweep

import (
	"context"
	stderrors "errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/schedule"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) RunOnce(ctx context.Context, at time.Time) error {
	return m.Called(ctx, at).Error(0)
}

func newTestHandler(t *testing.T, sweeper SweepRunner) *Handler {
	t.Helper()
	app := &config.Config{}
	app.Notifications.Timezone = "Africa/Freetown"
	h, err := NewHandler(HandlerOptions{AppConfig: app, Sweeper: sweeper, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC) }
	return h
}

func TestHandler_Execute(t *testing.T) {
	t.Run("defaults to today", func(t *testing.T) {
		sweeper := &MockSweeper{}
		sweeper.On("RunOnce", mock.Anything, mock.MatchedBy(func(at time.Time) bool {
			return at.Format("2006-01-02") == "2026-03-01"
		})).Return(nil)

		out, err := newTestHandler(t, sweeper).Execute(context.Background(), &Input{})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, out.SweepStatus)
		assert.Equal(t, "2026-03-01", out.SweepDay)
		sweeper.AssertExpectations(t)
	})

	t.Run("explicit day", func(t *testing.T) {
		sweeper := &MockSweeper{}
		sweeper.On("RunOnce", mock.Anything, mock.Anything).Return(nil)

		out, err := newTestHandler(t, sweeper).Execute(context.Background(), &Input{Day: "2026-02-14"})
		require.NoError(t, err)
		assert.Equal(t, "2026-02-14", out.SweepDay)
	})

	t.Run("bad day", func(t *testing.T) {
		sweeper := &MockSweeper{}
		_, err := newTestHandler(t, sweeper).Execute(context.Background(), &Input{Day: "14/02/2026"})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidJobPayload))
		sweeper.AssertNotCalled(t, "RunOnce", mock.Anything, mock.Anything)
	})

	t.Run("already running", func(t *testing.T) {
		sweeper := &MockSweeper{}
		sweeper.On("RunOnce", mock.Anything, mock.Anything).Return(schedule.ErrSweepRunning)

		out, err := newTestHandler(t, sweeper).Execute(context.Background(), &Input{})
		require.NoError(t, err)
		assert.Equal(t, StatusAlreadyRunning, out.SweepStatus)
	})

	t.Run("template lookup failure", func(t *testing.T) {
		sweeper := &MockSweeper{}
		sweeper.On("RunOnce", mock.Anything, mock.Anything).
			Return(errors.NewTemplateLookupFailedError("SCHEDULED_DAYS_DUE_DATE", stderrors.New("connection refused")))

		_, err := newTestHandler(t, sweeper).Execute(context.Background(), &Input{})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateLookupFailed))
	})
}
