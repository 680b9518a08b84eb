package notification

import (
	"context"
	"time"

	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/common/metrics"
	"dataset-notifier/internal/models"
)

// RunRecorder receives the outcome of each entry point invocation.
type RunRecorder interface {
	RecordRun(ctx context.Context, trigger string, status string, duration time.Duration)
}

// Run statuses reported to the RunRecorder.
const (
	RunSucceeded = "success"
	RunFailed    = "failed"
	RunPartial   = "partial"
)

// Service is the entry point for the daily sweep and completion events.
type Service struct {
	templates    TemplateStore
	builder      *Builder
	dispatcher   *Dispatcher
	recorder     RunRecorder
	sweepTimeout time.Duration
	logger       logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder reports every run to r.
func WithRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithSweepTimeout bounds each daily sweep.
func WithSweepTimeout(d time.Duration) Option {
	return func(s *Service) { s.sweepTimeout = d }
}

func NewService(templates TemplateStore, builder *Builder, dispatcher *Dispatcher, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		templates:  templates,
		builder:    builder,
		dispatcher: dispatcher,
		logger:     logger.ForComponent(log, "notification-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunDailySweep evaluates every scheduled template as of day and dispatches
// the resulting batch.
func (s *Service) RunDailySweep(ctx context.Context, day time.Time) (err error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
		s.record(ctx, string(models.TriggerScheduledDaysDueDate), err, false, time.Since(start))
	}()

	if s.sweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sweepTimeout)
		defer cancel()
	}

	templates, err := s.templates.GetTemplatesByTrigger(ctx, models.TriggerScheduledDaysDueDate)
	if err != nil {
		return apperrors.NewTemplateLookupFailedError(string(models.TriggerScheduledDaysDueDate), err)
	}
	if len(templates) == 0 {
		s.logger.Info("no scheduled templates registered", map[string]interface{}{"day": day.Format("2006-01-02")})
		return nil
	}

	batch, err := s.builder.BuildScheduled(ctx, templates, day)
	if err != nil {
		return err
	}

	report := s.dispatcher.Dispatch(ctx, batch)
	s.logger.Info("daily sweep finished", map[string]interface{}{
		"day":       day.Format("2006-01-02"),
		"templates": len(templates),
		"internal":  len(batch.Internal),
		"external":  len(batch.External),
		"failed":    report.InternalFailed,
	})
	return nil
}

// OnSubmissionCompleted sends the completion notifications for c. A nil case
// is a no-op. Messages that could be built are dispatched even when others
// failed; those failures are returned afterwards.
func (s *Service) OnSubmissionCompleted(ctx context.Context, c *models.SubmissionCase) (err error) {
	if c == nil || c.DataSet == nil {
		return nil
	}
	start := time.Now()
	partial := false
	defer func() {
		s.record(ctx, string(models.TriggerDataSetCompletion), err, partial, time.Since(start))
	}()

	all, err := s.templates.GetTemplatesForDataSet(ctx, c.DataSet.ID)
	if err != nil {
		return apperrors.NewTemplateLookupFailedError(c.DataSet.ID, err)
	}
	templates := make([]*models.Template, 0, len(all))
	for _, t := range all {
		if t.Trigger == models.TriggerDataSetCompletion {
			templates = append(templates, t)
		}
	}
	if len(templates) == 0 {
		return nil
	}

	batch, buildErr := s.builder.BuildCompletion(ctx, c, templates)
	if !batch.IsEmpty() {
		s.dispatcher.Dispatch(ctx, batch)
		partial = buildErr != nil
	}
	return buildErr
}

func (s *Service) record(ctx context.Context, trigger string, err error, partial bool, d time.Duration) {
	if s.recorder == nil {
		return
	}
	status := RunSucceeded
	switch {
	case err != nil && partial:
		status = RunPartial
	case err != nil:
		status = RunFailed
	}
	s.recorder.RecordRun(ctx, trigger, status, d)
}
