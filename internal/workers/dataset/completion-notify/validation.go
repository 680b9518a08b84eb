package completionnotify

import "dataset-notifier/internal/common/validation"

// uidPattern matches the 11 character identifiers used for metadata.
const uidPattern = `^[a-zA-Z][a-zA-Z0-9]{10}$`

func GetInputSchema() validation.JSONSchema {
	uid := uidPattern
	return validation.JSONSchema{
		Type:                 "object",
		Required:             []string{"dataSetId", "periodId", "orgUnitId"},
		AdditionalProperties: true,
		Properties: map[string]validation.Property{
			"dataSetId": {
				Type:        "string",
				Description: "Completed dataset",
				Pattern:     &uid,
			},
			"periodId": {
				Type:        "string",
				Description: "ISO period identifier",
				MinLength:   intPtr(4),
				MaxLength:   intPtr(8),
			},
			"orgUnitId": {
				Type:        "string",
				Description: "Reporting organisation unit",
				Pattern:     &uid,
			},
			"attributeOptionComboId": {
				Type:    "string",
				Pattern: &uid,
			},
			"completedBy": {
				Type:      "string",
				MaxLength: intPtr(255),
			},
			"completedAt": {
				Type:        "string",
				Description: "Completion timestamp in RFC 3339",
			},
		},
	}
}

func intPtr(i int) *int { return &i }
