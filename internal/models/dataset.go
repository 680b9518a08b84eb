// internal/models/dataset.go
package models

import (
	"time"

	"dataset-notifier/internal/period"
)

// DefaultAttributeOptionCombo is the identifier of the default
// attribute option combination.
const DefaultAttributeOptionCombo = "HllvX50cXC0"

// OrgUnit is a reporting unit with optional contact details.
type OrgUnit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
}

// DataSet is a periodic data submission form. Sources are the org units
// expected to report it.
type DataSet struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	PeriodType  period.Type `json:"periodType"`
	Sources     []*OrgUnit  `json:"sources"`
}

// User is an internal message recipient.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// CaseKey identifies a submission by value.
type CaseKey struct {
	DataSetID              string
	PeriodID               string
	OrgUnitID              string
	AttributeOptionComboID string
}

// SubmissionCase is one candidate submission of a dataset by an org unit
// for a period. CompletedBy/CompletedAt are set on the completion path only.
type SubmissionCase struct {
	DataSet                *DataSet
	Period                 period.Period
	OrgUnit                *OrgUnit
	AttributeOptionComboID string
	CompletedBy            string
	CompletedAt            time.Time
}

// Key returns the structural key of the case.
func (c SubmissionCase) Key() CaseKey {
	k := CaseKey{PeriodID: c.Period.ID, AttributeOptionComboID: c.AttributeOptionComboID}
	if c.DataSet != nil {
		k.DataSetID = c.DataSet.ID
	}
	if c.OrgUnit != nil {
		k.OrgUnitID = c.OrgUnit.ID
	}
	if k.AttributeOptionComboID == "" {
		k.AttributeOptionComboID = DefaultAttributeOptionCombo
	}
	return k
}

// CompletionRecord marks a submission as complete.
type CompletionRecord struct {
	Key         CaseKey
	CompletedBy string
	CompletedAt time.Time
}
