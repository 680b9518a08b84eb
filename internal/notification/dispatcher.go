package notification

import (
	"context"
	"sync"

	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/common/metrics"
	"dataset-notifier/internal/models"
)

// DispatchReport summarises one dispatch.
type DispatchReport struct {
	InternalSent   int
	InternalFailed int
	// ExternalStatus is nil when no external batch was sent.
	ExternalStatus *models.BatchResponseStatus
	ExternalErr    error
	InternalErrs   []error
}

// Dispatcher sends a batch through the internal and external transports.
type Dispatcher struct {
	internal InternalTransport
	external ExternalTransport
	logger   logger.Logger
}

func NewDispatcher(internal InternalTransport, external ExternalTransport, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		internal: internal,
		external: external,
		logger:   logger.ForComponent(log, "dispatcher"),
	}
}

// Dispatch sends both lists concurrently and waits for both. A failing
// internal message does not stop the rest, and neither list affects the
// other. Nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, batch *MessageBatch) DispatchReport {
	var report DispatchReport
	if batch.IsEmpty() {
		return report
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.sendInternal(ctx, batch.Internal, &report)
	}()
	go func() {
		defer wg.Done()
		d.sendExternal(ctx, batch.External, &report)
	}()
	wg.Wait()

	d.logger.Info("batch dispatched", map[string]interface{}{
		"internalSent":   report.InternalSent,
		"internalFailed": report.InternalFailed,
		"external":       len(batch.External),
		"externalStatus": report.ExternalStatus.String(),
	})
	return report
}

// sendInternal only touches the internal fields of report.
func (d *Dispatcher) sendInternal(ctx context.Context, messages []models.InternalMessage, report *DispatchReport) {
	for _, m := range messages {
		if err := d.internal.Send(ctx, m.Subject, m.Body, m.Recipients); err != nil {
			report.InternalFailed++
			report.InternalErrs = append(report.InternalErrs, apperrors.NewInternalSendFailedError(err))
			metrics.NotificationsFailed.WithLabelValues(metrics.TransportInternal).Inc()
			d.logger.Error("internal message send failed", map[string]interface{}{
				"templateId": m.TemplateID,
				"recipients": len(m.Recipients),
				"error":      err,
			})
			continue
		}
		report.InternalSent++
		metrics.NotificationsSent.WithLabelValues(metrics.TransportInternal).Inc()
	}
}

// sendExternal only touches the external fields of report.
func (d *Dispatcher) sendExternal(ctx context.Context, messages []models.ExternalMessage, report *DispatchReport) {
	if len(messages) == 0 {
		return
	}

	status, err := d.external.SendBatch(ctx, messages)
	report.ExternalStatus = status
	if err != nil {
		report.ExternalErr = apperrors.NewExternalSendFailedError("BATCH", err)
		metrics.NotificationsFailed.WithLabelValues(metrics.TransportExternal).Add(float64(len(messages)))
		d.logger.Error("external batch send failed", map[string]interface{}{
			"messages": len(messages),
			"error":    err,
		})
		return
	}
	if status == nil {
		return
	}

	metrics.NotificationsSent.WithLabelValues(metrics.TransportExternal).Add(float64(status.Sent))
	metrics.NotificationsFailed.WithLabelValues(metrics.TransportExternal).Add(float64(status.Failed))
	d.logger.Debug("external batch status", map[string]interface{}{"status": status.String()})
	if status.HasFailures() {
		d.logger.Warn("external batch partially failed", map[string]interface{}{
			"batchId": status.BatchID,
			"failed":  status.Failed,
			"sent":    status.Sent,
		})
	}
}
