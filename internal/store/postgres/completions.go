package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dataset-notifier/internal/models"
)

const completionQuery = `
	SELECT COALESCE(stored_by, ''), completed_at
	FROM complete_dataset_registration
	WHERE dataset_id = $1 AND period_id = $2 AND org_unit_id = $3 AND attribute_option_combo_id = $4`

// GetCompletion returns nil, nil when the case has no registration.
func (s *Store) GetCompletion(ctx context.Context, key models.CaseKey) (*models.CompletionRecord, error) {
	rec := &models.CompletionRecord{Key: key}
	err := s.db.QueryRowContext(ctx, completionQuery,
		key.DataSetID, key.PeriodID, key.OrgUnitID, key.AttributeOptionComboID,
	).Scan(&rec.CompletedBy, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query completion: %w", err)
	}
	return rec, nil
}
