package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"dataset-notifier/internal/models"
)

const templateColumns = `
	t.uid, t.name, t.trigger, t.relative_scheduled_days, t.delivery_channels,
	t.send_strategy, t.recipient_kind, t.recipient_group_id,
	COALESCE(t.subject_template, ''), COALESCE(t.message_template, '')`

var templatesByTriggerQuery = `SELECT` + templateColumns + `
	FROM dataset_notification_template t
	WHERE t.trigger = $1
	ORDER BY t.uid`

var templatesByDataSetQuery = `SELECT` + templateColumns + `
	FROM dataset_notification_template t
	JOIN dataset_notification_template_datasets td ON td.template_id = t.uid
	WHERE td.dataset_id = $1
	ORDER BY t.uid`

// GetTemplatesByTrigger returns every template registered for trigger, with
// datasets and sources loaded.
func (s *Store) GetTemplatesByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Template, error) {
	return s.queryTemplates(ctx, templatesByTriggerQuery, string(trigger))
}

// GetTemplatesForDataSet returns every template attached to a dataset.
func (s *Store) GetTemplatesForDataSet(ctx context.Context, dataSetID string) ([]*models.Template, error) {
	return s.queryTemplates(ctx, templatesByDataSetQuery, dataSetID)
}

func (s *Store) queryTemplates(ctx context.Context, query string, arg string) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	if err := s.attachDataSets(ctx, templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func scanTemplate(rows *sql.Rows) (*models.Template, error) {
	var (
		t        models.Template
		trigger  string
		channels []string
		strategy string
		kind     string
		groupID  sql.NullString
	)
	err := rows.Scan(
		&t.ID, &t.Name, &trigger, &t.RelativeScheduledDays, pq.Array(&channels),
		&strategy, &kind, &groupID,
		&t.SubjectTemplate, &t.MessageTemplate,
	)
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}

	t.SendStrategy, err = models.ParseSendStrategy(strategy)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	t.Trigger = models.TriggerKind(trigger)
	t.RecipientKind = models.RecipientKind(kind)
	t.RecipientGroupID = groupID.String
	for _, ch := range channels {
		t.DeliveryChannels = append(t.DeliveryChannels, models.DeliveryChannel(ch))
	}
	return &t, nil
}
