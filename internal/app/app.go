// Package app assembles the notification pipeline from configuration and
// live connections.
package app

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dataset-notifier/internal/common/auth"
	awsclients "dataset-notifier/internal/common/aws"
	"dataset-notifier/internal/common/config"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/notification"
	"dataset-notifier/internal/period"
	"dataset-notifier/internal/render"
	"dataset-notifier/internal/store/cache"
	"dataset-notifier/internal/store/postgres"
	"dataset-notifier/internal/transport/inbox"
	"dataset-notifier/internal/transport/outbound"
)

// Deps are the live connections the pipeline runs on. Recorder may be nil.
type Deps struct {
	Config   *config.Config
	DB       *sql.DB
	Redis    redis.Cmdable
	AWS      *awsclients.Clients
	Recorder notification.RunRecorder
	Logger   logger.Logger
}

// App exposes the assembled pieces callers need.
type App struct {
	Store   *postgres.Store
	Service *notification.Service
}

// Build wires stores, transports and the notification service.
func Build(d Deps) (*App, error) {
	cfg := d.Config
	n := cfg.Notifications

	store := postgres.New(d.DB, d.Logger)
	templates := cache.NewTemplateStore(store, d.Redis, config.GetDuration(n.TemplateCacheTTL), d.Logger)

	groups, err := groupDirectory(cfg, store)
	if err != nil {
		return nil, err
	}

	periods := period.NewFormatter(n.Locale)
	builder := notification.NewBuilder(
		notification.NewEvaluator(store),
		notification.NewResolver(groups),
		render.New(periods),
		periods,
		n.MaxWorkers,
		d.Logger,
	)

	aws := cfg.Integrations.AWS
	external := outbound.New(outbound.Config{
		EmailEnabled:   aws.SES.Enabled,
		SMSEnabled:     aws.SNS.Enabled,
		FromEmail:      aws.SES.FromEmail,
		SMSSenderID:    aws.SNS.DefaultSMSSenderID,
		MaxConcurrency: aws.MaxConcurrency,
		EmailRate:      aws.SES.MaxSendRate,
		SMSRate:        aws.SNS.MaxSendRate,
	}, d.AWS.SES, d.AWS.SNS, d.Logger)
	internal := inbox.New(d.DB, n.SenderID, d.Logger)

	opts := []notification.Option{notification.WithSweepTimeout(config.GetDuration(n.SweepTimeout))}
	if d.Recorder != nil {
		opts = append(opts, notification.WithRecorder(d.Recorder))
	}
	service := notification.NewService(templates, builder, notification.NewDispatcher(internal, external, d.Logger), d.Logger, opts...)

	return &App{Store: store, Service: service}, nil
}

func groupDirectory(cfg *config.Config, store *postgres.Store) (notification.GroupDirectory, error) {
	switch cfg.Notifications.RecipientSource {
	case config.RecipientSourcePostgres, "":
		return store, nil
	case config.RecipientSourceKeycloak:
		kc := cfg.Auth.Keycloak
		return auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret,
			auth.WithMembersTTL(config.GetDuration(kc.MembersTTL))), nil
	}
	return nil, fmt.Errorf("unsupported recipient source %q", cfg.Notifications.RecipientSource)
}
