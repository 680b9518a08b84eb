package dailysweep

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"dataset-notifier/internal/common/camunda"
	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/common/metrics"
	"dataset-notifier/internal/schedule"
)

// TaskType lets a BPMN timer drive the sweep instead of the in-process
// schedule.
const TaskType = "dataset-daily-sweep"

// SweepRunner runs a single sweep, refusing to overlap a running one.
type SweepRunner interface {
	RunOnce(ctx context.Context, at time.Time) error
}

type Handler struct {
	config     *Config
	sweeper    SweepRunner
	now        func() time.Time
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig *config.Config
	Sweeper   SweepRunner
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg, err := createConfigFromAppConfig(opts.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:     cfg,
		sweeper:    opts.Sweeper,
		now:        time.Now,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if !h.config.Enabled {
		h.completeJob(ctx, client, job, &Output{SweepStatus: StatusDisabled})
		return
	}

	var input Input
	err := job.GetVariablesAs(&input)
	if err != nil {
		err = errors.NewInvalidJobPayloadError(fmt.Sprintf("decode variables: %v", err))
	} else {
		var output *Output
		if output, err = h.Execute(ctx, &input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

// Execute sweeps the requested day. A sweep already in progress completes
// the job without running a second one.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	day := h.now().In(h.config.Location)
	if input.Day != "" {
		parsed, err := time.ParseInLocation("2006-01-02", input.Day, h.config.Location)
		if err != nil {
			return nil, errors.NewInvalidJobPayloadError(fmt.Sprintf("day: %v", err))
		}
		day = parsed
	}
	out := &Output{SweepDay: day.Format("2006-01-02"), SweepStatus: StatusCompleted}

	err := h.sweeper.RunOnce(ctx, day)
	switch {
	case err == nil:
		return out, nil
	case stderrors.Is(err, schedule.ErrSweepRunning):
		h.logger.Warn("sweep already running", map[string]interface{}{"day": out.SweepDay})
		out.SweepStatus = StatusAlreadyRunning
		return out, nil
	}
	return nil, err
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	err := camunda.ExecuteWithRetry(ctx, camunda.DefaultRetryConfig, "complete-job", func(ctx context.Context) error {
		cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
		if err != nil {
			return err
		}
		_, err = cmd.Send(ctx)
		return err
	})
	if err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		return
	}
	h.logger.Info("sweep job processed", map[string]interface{}{
		"jobKey": job.GetKey(),
		"status": output.SweepStatus,
		"day":    output.SweepDay,
	})
}
