// Package notification decides which dataset notification templates are due,
// builds message batches for them and dispatches those batches.
package notification

import (
	"context"

	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

// TemplateStore looks up notification templates. Empty results are not errors.
type TemplateStore interface {
	GetTemplatesByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Template, error)
	GetTemplatesForDataSet(ctx context.Context, dataSetID string) ([]*models.Template, error)
}

// CompletionStore returns the completion record for a case, or nil when the
// case has not been completed.
type CompletionStore interface {
	GetCompletion(ctx context.Context, key models.CaseKey) (*models.CompletionRecord, error)
}

// GroupDirectory resolves recipient group members.
type GroupDirectory interface {
	GroupMembers(ctx context.Context, groupID string) ([]models.User, error)
}

// Renderer produces the subject and body of a per-case message.
type Renderer interface {
	Render(c *models.SubmissionCase, t *models.Template) (models.Rendered, error)
}

// PeriodFormatter renders a period label for summary text.
type PeriodFormatter interface {
	FormatPeriod(p period.Period) string
}

// InternalTransport delivers one message to a set of users.
type InternalTransport interface {
	Send(ctx context.Context, subject, body string, recipients []models.User) error
}

// ExternalTransport delivers a list of SMS/email messages in one call.
type ExternalTransport interface {
	SendBatch(ctx context.Context, messages []models.ExternalMessage) (*models.BatchResponseStatus, error)
}
