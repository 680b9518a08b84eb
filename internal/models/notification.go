// internal/models/notification.go
package models

import "fmt"

// TriggerKind is the event class that activates a template.
type TriggerKind string

const (
	TriggerScheduledDaysDueDate TriggerKind = "SCHEDULED_DAYS_DUE_DATE"
	TriggerDataSetCompletion    TriggerKind = "DATA_SET_COMPLETION"
)

// IsScheduled reports whether the trigger fires from the daily sweep.
func (k TriggerKind) IsScheduled() bool {
	return k == TriggerScheduledDaysDueDate
}

// SendStrategy decides whether a template yields one message per case or
// one summary per template.
type SendStrategy int

const (
	SingleNotification SendStrategy = iota
	CollectiveSummary
)

// SendStrategies lists every strategy value.
var SendStrategies = []SendStrategy{SingleNotification, CollectiveSummary}

func (s SendStrategy) String() string {
	switch s {
	case SingleNotification:
		return "SINGLE_NOTIFICATION"
	case CollectiveSummary:
		return "COLLECTIVE_SUMMARY"
	}
	return fmt.Sprintf("SendStrategy(%d)", int(s))
}

// ParseSendStrategy converts the stored strategy name.
func ParseSendStrategy(s string) (SendStrategy, error) {
	switch s {
	case "SINGLE_NOTIFICATION":
		return SingleNotification, nil
	case "COLLECTIVE_SUMMARY":
		return CollectiveSummary, nil
	}
	return 0, fmt.Errorf("unknown send strategy: %q", s)
}

func (s SendStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SendStrategy) UnmarshalText(b []byte) error {
	v, err := ParseSendStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DeliveryChannel is an external transport medium.
type DeliveryChannel string

const (
	ChannelSMS   DeliveryChannel = "SMS"
	ChannelEmail DeliveryChannel = "EMAIL"
)

// RecipientKind is the audience of a template.
type RecipientKind string

const (
	RecipientUserGroup      RecipientKind = "USER_GROUP"
	RecipientOrgUnitContact RecipientKind = "ORGANISATION_UNIT_CONTACT"
)

// IsExternal reports whether messages leave through the external transport.
func (k RecipientKind) IsExternal() bool {
	return k == RecipientOrgUnitContact
}

// Template is a dataset notification rule. DataSets are fully loaded with
// their sources.
type Template struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Trigger               TriggerKind       `json:"trigger"`
	RelativeScheduledDays int               `json:"relativeScheduledDays"`
	DeliveryChannels      []DeliveryChannel `json:"deliveryChannels"`
	SendStrategy          SendStrategy      `json:"sendStrategy"`
	RecipientKind         RecipientKind     `json:"recipientKind"`
	RecipientGroupID      string            `json:"recipientGroupId,omitempty"`
	SubjectTemplate       string            `json:"subjectTemplate"`
	MessageTemplate       string            `json:"messageTemplate"`
	DataSets              []*DataSet        `json:"dataSets"`
}

// IsPendingReminder is true for offsets before the due date.
func (t *Template) IsPendingReminder() bool {
	return t.RelativeScheduledDays < 0
}

// Rendered is a subject and body produced by a renderer.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// InternalMessage is delivered to users through the inbox.
type InternalMessage struct {
	TemplateID string `json:"templateId"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Recipients []User `json:"recipients"`
}

// ExternalRecipients are contact endpoints per channel.
type ExternalRecipients struct {
	PhoneNumbers   []string `json:"phoneNumbers,omitempty"`
	EmailAddresses []string `json:"emailAddresses,omitempty"`
}

// IsEmpty reports whether no endpoint was collected.
func (r ExternalRecipients) IsEmpty() bool {
	return len(r.PhoneNumbers) == 0 && len(r.EmailAddresses) == 0
}

// ExternalMessage is delivered over SMS and/or email.
type ExternalMessage struct {
	TemplateID       string             `json:"templateId"`
	Subject          string             `json:"subject"`
	Body             string             `json:"body"`
	Recipients       ExternalRecipients `json:"recipients"`
	DeliveryChannels []DeliveryChannel  `json:"deliveryChannels"`
}

// Delivery statuses reported per endpoint by the external transport.
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// DeliveryResult is the outcome for one endpoint of one message.
type DeliveryResult struct {
	MessageIndex int             `json:"messageIndex"`
	Channel      DeliveryChannel `json:"channel"`
	Recipient    string          `json:"recipient"`
	Status       string          `json:"status"`
	ProviderID   string          `json:"providerId,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// BatchResponseStatus summarises one bulk external send.
type BatchResponseStatus struct {
	BatchID string           `json:"batchId"`
	Results []DeliveryResult `json:"results"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
}

// Record appends a result and updates the counters.
func (s *BatchResponseStatus) Record(r DeliveryResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case DeliverySent:
		s.Sent++
	case DeliveryFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// HasFailures reports whether any endpoint failed.
func (s *BatchResponseStatus) HasFailures() bool {
	return s != nil && s.Failed > 0
}

func (s *BatchResponseStatus) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("batch=%s sent=%d failed=%d skipped=%d", s.BatchID, s.Sent, s.Failed, s.Skipped)
}
