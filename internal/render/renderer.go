// Package render substitutes V{name} variables in notification templates.
package render

import (
	"regexp"

	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

// Variable names available to dataset notification templates.
const (
	VarDataName       = "data_name"
	VarDataDesc       = "data_description"
	VarOrgUnit        = "complete_registration_ou"
	VarPeriod         = "complete_registration_period"
	VarUser           = "complete_registration_user"
	VarTime           = "complete_registration_time"
	VarAttOptionCombo = "complete_registration_att_opt_combo"
)

const timeLayout = "2006-01-02 15:04"

var variablePattern = regexp.MustCompile(`V\{([a-zA-Z0-9_]+)\}`)

// PeriodFormatter renders the period label used for complete_registration_period.
type PeriodFormatter interface {
	FormatPeriod(p period.Period) string
}

// Renderer renders subject and body templates for a submission case.
type Renderer struct {
	periods PeriodFormatter
}

func New(periods PeriodFormatter) *Renderer {
	return &Renderer{periods: periods}
}

// Render never fails on unknown variables; they render as empty strings.
func (r *Renderer) Render(c *models.SubmissionCase, t *models.Template) (models.Rendered, error) {
	vars := r.variables(c)
	return models.Rendered{
		Subject: substitute(t.SubjectTemplate, vars),
		Body:    substitute(t.MessageTemplate, vars),
	}, nil
}

func (r *Renderer) variables(c *models.SubmissionCase) map[string]string {
	vars := map[string]string{
		VarUser:           c.CompletedBy,
		VarAttOptionCombo: c.Key().AttributeOptionComboID,
	}
	if c.DataSet != nil {
		vars[VarDataName] = c.DataSet.Name
		vars[VarDataDesc] = c.DataSet.Description
	}
	if c.OrgUnit != nil {
		vars[VarOrgUnit] = c.OrgUnit.Name
	}
	if c.Period.ID != "" {
		vars[VarPeriod] = r.periods.FormatPeriod(c.Period)
	}
	if !c.CompletedAt.IsZero() {
		vars[VarTime] = c.CompletedAt.Format(timeLayout)
	}
	return vars
}

func substitute(tmpl string, vars map[string]string) string {
	if tmpl == "" {
		return ""
	}
	return variablePattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := variablePattern.FindStringSubmatch(m)[1]
		return vars[name]
	})
}
