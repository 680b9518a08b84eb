// Package postgres reads notification templates, datasets, completions and
// recipient groups from PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

// Store implements the template, completion and group lookups over one
// database handle.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: logger.ForComponent(log, "postgres-store")}
}

const dataSetsByTemplateQuery = `
	SELECT td.template_id, d.uid, d.name, COALESCE(d.description, ''), d.period_type
	FROM dataset_notification_template_datasets td
	JOIN dataset d ON d.uid = td.dataset_id
	WHERE td.template_id = ANY($1)
	ORDER BY td.template_id, d.uid`

const sourcesByDataSetQuery = `
	SELECT s.dataset_id, ou.uid, ou.name, COALESCE(ou.phone_number, ''), COALESCE(ou.email, '')
	FROM dataset_source s
	JOIN organisation_unit ou ON ou.uid = s.org_unit_id
	WHERE s.dataset_id = ANY($1)
	ORDER BY s.dataset_id, ou.uid`

// attachDataSets loads the datasets of templates along with their sources.
// A dataset shared by several templates is loaded once.
func (s *Store) attachDataSets(ctx context.Context, templates []*models.Template) error {
	if len(templates) == 0 {
		return nil
	}
	byID := make(map[string]*models.Template, len(templates))
	ids := make([]string, 0, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := s.db.QueryContext(ctx, dataSetsByTemplateQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query template datasets: %w", err)
	}
	defer rows.Close()

	dataSets := make(map[string]*models.DataSet)
	var dsIDs []string
	for rows.Next() {
		var templateID, periodType string
		ds := &models.DataSet{}
		if err := rows.Scan(&templateID, &ds.ID, &ds.Name, &ds.Description, &periodType); err != nil {
			return fmt.Errorf("scan template dataset: %w", err)
		}
		pt, err := period.ParseType(periodType)
		if err != nil {
			s.logger.Warn("dataset has unsupported period type", map[string]interface{}{
				"dataSetId":  ds.ID,
				"periodType": periodType,
			})
		}
		ds.PeriodType = pt

		if existing, ok := dataSets[ds.ID]; ok {
			ds = existing
		} else {
			dataSets[ds.ID] = ds
			dsIDs = append(dsIDs, ds.ID)
		}
		if t, ok := byID[templateID]; ok {
			t.DataSets = append(t.DataSets, ds)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate template datasets: %w", err)
	}

	return s.attachSources(ctx, dataSets, dsIDs)
}

func (s *Store) attachSources(ctx context.Context, dataSets map[string]*models.DataSet, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, sourcesByDataSetQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query dataset sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dataSetID string
		ou := &models.OrgUnit{}
		if err := rows.Scan(&dataSetID, &ou.ID, &ou.Name, &ou.PhoneNumber, &ou.Email); err != nil {
			return fmt.Errorf("scan dataset source: %w", err)
		}
		if ds, ok := dataSets[dataSetID]; ok {
			ds.Sources = append(ds.Sources, ou)
		}
	}
	return rows.Err()
}
