package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

const dataSetQuery = `
	SELECT d.uid, d.name, COALESCE(d.description, ''), d.period_type
	FROM dataset d
	WHERE d.uid = $1`

const orgUnitQuery = `
	SELECT ou.uid, ou.name, COALESCE(ou.phone_number, ''), COALESCE(ou.email, '')
	FROM organisation_unit ou
	WHERE ou.uid = $1`

// GetDataSet loads a dataset with its sources. It returns nil, nil when the
// dataset does not exist.
func (s *Store) GetDataSet(ctx context.Context, id string) (*models.DataSet, error) {
	var periodType string
	ds := &models.DataSet{}
	err := s.db.QueryRowContext(ctx, dataSetQuery, id).Scan(&ds.ID, &ds.Name, &ds.Description, &periodType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	if ds.PeriodType, err = period.ParseType(periodType); err != nil {
		return nil, err
	}

	if err := s.attachSources(ctx, map[string]*models.DataSet{ds.ID: ds}, []string{ds.ID}); err != nil {
		return nil, err
	}
	return ds, nil
}

// GetOrgUnit returns nil, nil when the org unit does not exist.
func (s *Store) GetOrgUnit(ctx context.Context, id string) (*models.OrgUnit, error) {
	ou := &models.OrgUnit{}
	err := s.db.QueryRowContext(ctx, orgUnitQuery, id).Scan(&ou.ID, &ou.Name, &ou.PhoneNumber, &ou.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query org unit: %w", err)
	}
	return ou, nil
}

