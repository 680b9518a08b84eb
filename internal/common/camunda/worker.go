// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/logger"
)

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in configuration.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handler func(worker.JobClient, entities.Job),
	log logger.Logger,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return jobWorker
}

// StopWorker closes w and waits for in-flight jobs up to timeout.
func StopWorker(w worker.JobWorker, timeout time.Duration, log logger.Logger) {
	if w == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		w.Close()
		w.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
		log.Info("worker stopped", nil)
	case <-time.After(timeout):
		log.Warn("worker did not stop in time", map[string]interface{}{"timeout": timeout.String()})
	}
}
