package completionnotify

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"dataset-notifier/internal/common/camunda"
	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/common/metrics"
	"dataset-notifier/internal/common/validation"
	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

const TaskType = "dataset-completion-notify"

// CaseLoader fetches the metadata a completion event refers to. Both
// lookups return nil, nil when the entity does not exist.
type CaseLoader interface {
	GetDataSet(ctx context.Context, id string) (*models.DataSet, error)
	GetOrgUnit(ctx context.Context, id string) (*models.OrgUnit, error)
}

// Notifier sends the completion notifications for a case.
type Notifier interface {
	OnSubmissionCompleted(ctx context.Context, c *models.SubmissionCase) error
}

type Handler struct {
	config     *Config
	loader     CaseLoader
	notifier   Notifier
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig *config.Config
	Loader    CaseLoader
	Notifier  Notifier
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
		loader:     opts.Loader,
		notifier:   opts.Notifier,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing completion event", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.completeJob(ctx, client, job, &Output{NotificationStatus: StatusDisabled})
		return
	}

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidJobPayloadError(fmt.Sprintf("variables: %v", err))
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewInvalidJobPayloadError(result.String())
	}

	var input Input
	if err := job.GetVariablesAs(&input); err != nil {
		return nil, errors.NewInvalidJobPayloadError(fmt.Sprintf("decode variables: %v", err))
	}
	return &input, nil
}

// Execute resolves the case and sends its notifications. Template lookup
// failures are returned so the job is retried; failures of individual
// notifications happen after the rest were dispatched and are reported in
// the output instead, since a retry would resend them.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	c, err := h.buildCase(ctx, input)
	if err != nil {
		return nil, err
	}

	err = h.notifier.OnSubmissionCompleted(ctx, c)
	switch {
	case err == nil:
		return &Output{NotificationStatus: StatusSent}, nil
	case errors.HasCode(err, errors.ErrCodeTemplateLookupFailed):
		return nil, err
	}

	h.logger.Warn("completion notifications partially failed", map[string]interface{}{
		"dataSetId": input.DataSetID,
		"periodId":  input.PeriodID,
		"orgUnitId": input.OrgUnitID,
		"error":     err,
	})
	return &Output{
		NotificationStatus: StatusCompletedWithError,
		NotificationErrors: flatten(err),
	}, nil
}

func (h *Handler) buildCase(ctx context.Context, input *Input) (*models.SubmissionCase, error) {
	ds, err := h.loader.GetDataSet(ctx, input.DataSetID)
	if err != nil {
		return nil, errors.NewDataSetLookupFailedError(input.DataSetID, err)
	}
	if ds == nil {
		return nil, errors.NewResourceNotFoundError("dataset", input.DataSetID)
	}

	ou, err := h.loader.GetOrgUnit(ctx, input.OrgUnitID)
	if err != nil {
		return nil, errors.NewDataSetLookupFailedError(input.OrgUnitID, err)
	}
	if ou == nil {
		return nil, errors.NewResourceNotFoundError("organisation unit", input.OrgUnitID)
	}

	p, err := period.Parse(input.PeriodID, h.config.Location)
	if err != nil {
		return nil, errors.NewInvalidJobPayloadError(err.Error())
	}

	c := &models.SubmissionCase{
		DataSet:                ds,
		Period:                 p,
		OrgUnit:                ou,
		AttributeOptionComboID: input.AttributeOptionComboID,
		CompletedBy:            input.CompletedBy,
	}
	if c.AttributeOptionComboID == "" {
		c.AttributeOptionComboID = models.DefaultAttributeOptionCombo
	}
	if input.CompletedAt != "" {
		if c.CompletedAt, err = time.Parse(time.RFC3339, input.CompletedAt); err != nil {
			return nil, errors.NewInvalidJobPayloadError(fmt.Sprintf("completedAt: %v", err))
		}
	}
	return c, nil
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
	h.logger.Info("completion event processed", map[string]interface{}{
		"jobKey": job.GetKey(),
		"status": output.NotificationStatus,
	})
}

// flatten lists the messages of a joined error.
func flatten(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, flatten(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}
