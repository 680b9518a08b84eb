package completionnotify

// Input is the completion event published by the registration process.
type Input struct {
	DataSetID              string `json:"dataSetId"`
	PeriodID               string `json:"periodId"`
	OrgUnitID              string `json:"orgUnitId"`
	AttributeOptionComboID string `json:"attributeOptionComboId,omitempty"`
	CompletedBy            string `json:"completedBy,omitempty"`
	CompletedAt            string `json:"completedAt,omitempty"` // RFC 3339
}

type Output struct {
	NotificationStatus string   `json:"notificationStatus"`
	NotificationErrors []string `json:"notificationErrors,omitempty"`
}

const (
	StatusSent               = "sent"
	StatusCompletedWithError = "completed_with_errors"
	StatusDisabled           = "disabled"
)
