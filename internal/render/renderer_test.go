package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

func TestRenderer_Render(t *testing.T) {
	p, err := period.Monthly.CreatePeriod(time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	c := &models.SubmissionCase{
		DataSet:     &models.DataSet{ID: "ds", Name: "ANC Monthly", Description: "Antenatal care"},
		Period:      p,
		OrgUnit:     &models.OrgUnit{ID: "ou", Name: "Ngelehun CHC"},
		CompletedBy: "admin",
		CompletedAt: time.Date(2026, time.February, 2, 9, 30, 0, 0, time.UTC),
	}

	tests := []struct {
		name        string
		subject     string
		body        string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "all variables",
			subject:     "V{data_name} completed",
			body:        "V{complete_registration_ou} / V{complete_registration_period} by V{complete_registration_user} at V{complete_registration_time} (V{complete_registration_att_opt_combo}): V{data_description}",
			wantSubject: "ANC Monthly completed",
			wantBody:    "Ngelehun CHC / January 2026 by admin at 2026-02-02 09:30 (HllvX50cXC0): Antenatal care",
		},
		{
			name:        "unknown variable is blanked",
			subject:     "Hello V{nope}!",
			body:        "plain text",
			wantSubject: "Hello !",
			wantBody:    "plain text",
		},
		{
			name:     "empty templates",
			wantBody: "",
		},
	}

	r := New(period.NewFormatter("en"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(c, &models.Template{SubjectTemplate: tt.subject, MessageTemplate: tt.body})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, got.Subject)
			assert.Equal(t, tt.wantBody, got.Body)
		})
	}
}

func TestRenderer_Render_ScheduledCaseHasNoCompletionFields(t *testing.T) {
	r := New(period.NewFormatter("fr"))
	p, err := period.Monthly.CreatePeriod(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	got, err := r.Render(
		&models.SubmissionCase{DataSet: &models.DataSet{Name: "EPI"}, Period: p, OrgUnit: &models.OrgUnit{Name: "Bo"}},
		&models.Template{MessageTemplate: "V{data_name} V{complete_registration_period} [V{complete_registration_user}]"},
	)
	require.NoError(t, err)
	assert.Equal(t, "EPI mars 2026 []", got.Body)
}
