package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

type fakeCompletions struct {
	mu        sync.Mutex
	completed map[models.CaseKey]bool
	err       error
	lookups   int
}

func (f *fakeCompletions) GetCompletion(_ context.Context, key models.CaseKey) (*models.CompletionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	if f.completed[key] {
		return &models.CompletionRecord{Key: key, CompletedBy: "admin"}, nil
	}
	return nil, nil
}

type fakeTemplates struct {
	byTrigger map[models.TriggerKind][]*models.Template
	byDataSet map[string][]*models.Template
	err       error
}

func (f *fakeTemplates) GetTemplatesByTrigger(_ context.Context, trigger models.TriggerKind) ([]*models.Template, error) {
	return f.byTrigger[trigger], f.err
}

func (f *fakeTemplates) GetTemplatesForDataSet(_ context.Context, dataSetID string) ([]*models.Template, error) {
	return f.byDataSet[dataSetID], f.err
}

type fakeGroups struct {
	members map[string][]models.User
	err     error
}

func (f *fakeGroups) GroupMembers(_ context.Context, groupID string) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members[groupID], nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(c *models.SubmissionCase, t *models.Template) (models.Rendered, error) {
	return models.Rendered{
		Subject: t.SubjectTemplate,
		Body:    fmt.Sprintf("%s:%s", t.ID, c.OrgUnit.ID),
	}, nil
}

type idFormatter struct{}

func (idFormatter) FormatPeriod(p period.Period) string { return p.ID }

type internalCall struct {
	subject    string
	body       string
	recipients []models.User
}

type fakeInternal struct {
	mu     sync.Mutex
	calls  []internalCall
	failOn map[string]error
}

func (f *fakeInternal) Send(_ context.Context, subject, body string, recipients []models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, internalCall{subject: subject, body: body, recipients: recipients})
	return f.failOn[body]
}

type fakeExternal struct {
	mu     sync.Mutex
	calls  [][]models.ExternalMessage
	status *models.BatchResponseStatus
	err    error
}

func (f *fakeExternal) SendBatch(_ context.Context, messages []models.ExternalMessage) (*models.BatchResponseStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	return f.status, f.err
}

var (
	// February 2026 ends on the 28th.
	sweepDay = time.Date(2026, time.February, 25, 6, 0, 0, 0, time.UTC)

	staff = []models.User{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}}
)

func unit(id, phone, email string) *models.OrgUnit {
	return &models.OrgUnit{ID: id, Name: "Unit " + id, PhoneNumber: phone, Email: email}
}

func monthlyDataSet(id string, sources ...*models.OrgUnit) *models.DataSet {
	return &models.DataSet{ID: id, Name: "DataSet " + id, PeriodType: period.Monthly, Sources: sources}
}

func scheduledTemplate(id string, offset int, strategy models.SendStrategy, dataSets ...*models.DataSet) *models.Template {
	return &models.Template{
		ID:                    id,
		Trigger:               models.TriggerScheduledDaysDueDate,
		RelativeScheduledDays: offset,
		SendStrategy:          strategy,
		RecipientKind:         models.RecipientUserGroup,
		RecipientGroupID:      "staff",
		SubjectTemplate:       "subject " + id,
		DataSets:              dataSets,
	}
}

func externalTemplate(t *models.Template, channels ...models.DeliveryChannel) *models.Template {
	t.RecipientKind = models.RecipientOrgUnitContact
	t.RecipientGroupID = ""
	t.DeliveryChannels = channels
	return t
}

type harness struct {
	completions *fakeCompletions
	groups      *fakeGroups
	templates   *fakeTemplates
	internal    *fakeInternal
	external    *fakeExternal
	builder     *Builder
	dispatcher  *Dispatcher
	service     *Service
}

func newHarness() *harness {
	h := &harness{
		completions: &fakeCompletions{completed: map[models.CaseKey]bool{}},
		groups:      &fakeGroups{members: map[string][]models.User{"staff": staff}},
		templates:   &fakeTemplates{byTrigger: map[models.TriggerKind][]*models.Template{}, byDataSet: map[string][]*models.Template{}},
		internal:    &fakeInternal{failOn: map[string]error{}},
		external:    &fakeExternal{status: &models.BatchResponseStatus{BatchID: "b-1"}},
	}
	log := logger.NewNoOpLogger()
	h.builder = NewBuilder(NewEvaluator(h.completions), NewResolver(h.groups), fakeRenderer{}, idFormatter{}, 4, log)
	h.dispatcher = NewDispatcher(h.internal, h.external, log)
	h.service = NewService(h.templates, h.builder, h.dispatcher, log)
	return h
}

func (h *harness) complete(ds *models.DataSet, periodID string, u *models.OrgUnit) {
	h.completions.completed[models.CaseKey{
		DataSetID:              ds.ID,
		PeriodID:               periodID,
		OrgUnitID:              u.ID,
		AttributeOptionComboID: models.DefaultAttributeOptionCombo,
	}] = true
}
