// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// AuthConfig holds the Keycloak admin client settings used to resolve
// recipient groups.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		MembersTTL   int    `mapstructure:"members_ttl"` // milliseconds
	} `mapstructure:"keycloak"`
}

// IntegrationConfig holds the external transport settings.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled     bool    `mapstructure:"enabled"`
			FromEmail   string  `mapstructure:"from_email"`
			MaxSendRate float64 `mapstructure:"max_send_rate"` // per second
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool    `mapstructure:"enabled"`
			DefaultSMSSenderID string  `mapstructure:"default_sms_sender_id"`
			MaxSendRate        float64 `mapstructure:"max_send_rate"` // per second
		} `mapstructure:"sns"`
		MaxConcurrency int `mapstructure:"max_concurrency"`
	} `mapstructure:"aws"`
}

// Recipient group sources.
const (
	RecipientSourcePostgres = "postgres"
	RecipientSourceKeycloak = "keycloak"
)

// NotificationConfig drives the sweep and the notification pipeline.
type NotificationConfig struct {
	SweepEnabled     bool   `mapstructure:"sweep_enabled"`
	SweepTime        string `mapstructure:"sweep_time"` // HH:MM
	Timezone         string `mapstructure:"timezone"`
	Locale           string `mapstructure:"locale"`
	MaxWorkers       int    `mapstructure:"max_workers"`
	TemplateCacheTTL int    `mapstructure:"template_cache_ttl"` // milliseconds
	SweepTimeout     int    `mapstructure:"sweep_timeout"`      // milliseconds
	RecipientSource  string `mapstructure:"recipient_source"`
	SenderID         string `mapstructure:"sender_id"`
}

// Location resolves the configured timezone.
func (n NotificationConfig) Location() (*time.Location, error) {
	if n.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(n.Timezone)
}

// SweepClock parses SweepTime into hour and minute.
func (n NotificationConfig) SweepClock() (int, int, error) {
	t, err := time.Parse("15:04", n.SweepTime)
	if err != nil {
		return 0, 0, fmt.Errorf("notifications.sweep_time %q: %w", n.SweepTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the health and metrics listener address.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
