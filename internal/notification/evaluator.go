package notification

import (
	"context"
	"fmt"
	"time"

	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

// Evaluator decides whether a submission case is due for a template.
type Evaluator struct {
	completions CompletionStore
}

func NewEvaluator(completions CompletionStore) *Evaluator {
	return &Evaluator{completions: completions}
}

// IsDue reports whether c falls exactly on t's reminder day relative to now
// and has not been completed. The completion store is only consulted for
// cases inside the window.
func (e *Evaluator) IsDue(ctx context.Context, c models.SubmissionCase, t *models.Template, now time.Time) (bool, error) {
	if !InWindow(c.Period.EndDate, now, t.RelativeScheduledDays) {
		return false, nil
	}

	key := c.Key()
	rec, err := e.completions.GetCompletion(ctx, key)
	if err != nil {
		return false, apperrors.NewCompletionLookupFailedError(formatKey(key), err)
	}
	return rec == nil, nil
}

// InWindow reports whether the day gap from now to dueDate equals the
// negated offset: offset -k matches k days before the due date, offset k
// matches k days after it.
func InWindow(dueDate, now time.Time, offset int) bool {
	return period.DaysBetween(now, dueDate) == -offset
}

func formatKey(k models.CaseKey) string {
	return fmt.Sprintf("%s/%s/%s/%s", k.DataSetID, k.PeriodID, k.OrgUnitID, k.AttributeOptionComboID)
}
