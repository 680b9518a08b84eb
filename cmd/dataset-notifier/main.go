// cmd/dataset-notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclients "dataset-notifier/internal/common/aws"
	"dataset-notifier/internal/app"
	"dataset-notifier/internal/common/camunda"
	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/database"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/common/observability"
	"dataset-notifier/internal/schedule"
	completionnotify "dataset-notifier/internal/workers/dataset/completion-notify"
	dailysweep "dataset-notifier/internal/workers/dataset/daily-sweep"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dataset notifier",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	awsClients, err := awsclients.NewClients(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws clients failed", zap.Error(err))
	}

	notifier, err := app.Build(app.Deps{
		Config:   cfg,
		DB:       pg.DB,
		Redis:    rdb.Client,
		AWS:      awsClients,
		Recorder: obs,
		Logger:   log,
	})
	if err != nil {
		zapLog.Fatal("failed to assemble notification pipeline", zap.Error(err))
	}

	// --- Completion worker ---
	handler, err := completionnotify.NewHandler(completionnotify.HandlerOptions{
		AppConfig: cfg,
		Loader:    notifier.Store,
		Notifier:  notifier.Service,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create completion handler", zap.Error(err))
	}
	jobWorker := camunda.StartWorker(
		zeebe.GetClient(),
		completionnotify.TaskType,
		config.GetWorkerConfig(cfg, completionnotify.TaskType),
		handler.Handle,
		log,
	)

	// --- Daily sweep ---
	hour, minute, _ := cfg.Notifications.SweepClock()
	loc, _ := cfg.Notifications.Location()
	var sweepOpts []schedule.Option
	if cfg.App.Environment == "development" {
		sweepOpts = append(sweepOpts, schedule.WithInterval(time.Minute))
	}
	sweeper := schedule.NewSweeper(notifier.Service.RunDailySweep, hour, minute, loc, log, sweepOpts...)
	if cfg.Notifications.SweepEnabled {
		go sweeper.Run(ctx)
	} else {
		zapLog.Info("daily sweep disabled by configuration")
	}

	sweepHandler, err := dailysweep.NewHandler(dailysweep.HandlerOptions{
		AppConfig: cfg,
		Sweeper:   sweeper,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create sweep handler", zap.Error(err))
	}
	sweepWorker := camunda.StartWorker(
		zeebe.GetClient(),
		dailysweep.TaskType,
		config.GetWorkerConfig(cfg, dailysweep.TaskType),
		sweepHandler.Handle,
		log,
	)

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:    cfg.Metrics.Address,
		Handler: newMux(sweeper, loc, []database.Pinger{pg, rdb, zeebe}, log),
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	// --- Graceful Shutdown ---
	zapLog.Info("Shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	camunda.StopWorker(jobWorker, 20*time.Second, log)
	camunda.StopWorker(sweepWorker, 20*time.Second, log)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	zapLog.Info("Dataset notifier stopped gracefully")
}

func newMux(sweeper *schedule.Sweeper, loc *time.Location, deps []database.Pinger, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		failures := database.CheckAll(r.Context(), 2*time.Second, deps...)
		if len(failures) > 0 {
			details := make(map[string]string, len(failures))
			for name, err := range failures {
				details[name] = err.Error()
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failures": details})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// POST /sweep?date=2006-01-02 runs the sweep for a given day, today by default.
	mux.HandleFunc("/sweep", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		day := time.Now().In(loc)
		if d := r.URL.Query().Get("date"); d != "" {
			parsed, err := time.ParseInLocation("2006-01-02", d, loc)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			day = parsed
		}

		err := sweeper.RunOnce(context.WithoutCancel(r.Context()), day)
		switch {
		case errors.Is(err, schedule.ErrSweepRunning):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case err != nil:
			log.Error("manual sweep failed", map[string]interface{}{"error": err})
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "done", "day": day.Format("2006-01-02")})
		}
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
