// cmd/tools/sweep-once/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	awsclients "dataset-notifier/internal/common/aws"
	"dataset-notifier/internal/app"
	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/database"
	"dataset-notifier/internal/common/logger"
)

func main() {
	date := flag.String("date", "", "Day to evaluate, YYYY-MM-DD (default: today in the configured timezone)")
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml)")
	flag.Parse()

	if err := run(*configPath, *date); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, date string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	loc, err := cfg.Notifications.Location()
	if err != nil {
		return err
	}
	day := time.Now().In(loc)
	if date != "" {
		if day, err = time.ParseInLocation("2006-01-02", date, loc); err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
	}

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()

	if failures := database.CheckAll(ctx, 5*time.Second, pg); len(failures) > 0 {
		return failures[pg.Name()]
	}

	clients, err := awsclients.NewClients(ctx, cfg.Integrations.AWS.Region)
	if err != nil {
		return err
	}

	a, err := app.Build(app.Deps{
		Config: cfg,
		DB:     pg.DB,
		Redis:  rdb.Client,
		AWS:    clients,
		Logger: log,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	if err := a.Service.RunDailySweep(ctx, day); err != nil {
		return fmt.Errorf("sweep for %s: %w", day.Format("2006-01-02"), err)
	}
	fmt.Printf("Sweep for %s finished in %s\n", day.Format("2006-01-02"), time.Since(start).Round(time.Millisecond))
	return nil
}
