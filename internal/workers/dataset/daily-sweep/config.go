package dailysweep

import (
	"fmt"
	"time"

	"dataset-notifier/internal/common/config"
)

type Config struct {
	Enabled  bool
	Timeout  time.Duration
	Location *time.Location
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		Timeout:  10 * time.Minute,
		Location: time.UTC,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	return nil
}

func createConfigFromAppConfig(app *config.Config) (*Config, error) {
	cfg := DefaultConfig()
	if app == nil {
		return cfg, nil
	}

	wcfg := config.GetWorkerConfig(app, TaskType)
	cfg.Enabled = wcfg.Enabled
	cfg.Timeout = config.GetDuration(wcfg.Timeout)

	loc, err := app.Notifications.Location()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc
	return cfg, nil
}
