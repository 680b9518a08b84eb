package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

func TestPartition(t *testing.T) {
	a := scheduledTemplate("a", -1, models.SingleNotification)
	b := scheduledTemplate("b", -1, models.CollectiveSummary)
	c := scheduledTemplate("c", 2, models.SingleNotification)

	groups := partition([]*models.Template{a, b, c})

	assert.Len(t, groups, len(models.SendStrategies))
	assert.Equal(t, []*models.Template{a, c}, groups[models.SingleNotification])
	assert.Equal(t, []*models.Template{b}, groups[models.CollectiveSummary])

	empty := partition(nil)
	assert.Contains(t, empty, models.SingleNotification)
	assert.Contains(t, empty, models.CollectiveSummary)
}

func TestBuilder_BuildScheduled_SingleAndSummaryDoNotOverlap(t *testing.T) {
	h := newHarness()
	ou1, ou2 := unit("ou-1", "", ""), unit("ou-2", "", "")
	dsSingle := monthlyDataSet("ds-1", ou1, ou2)
	h.complete(dsSingle, "202602", ou2)
	dsSummary := monthlyDataSet("ds-2", unit("ou-3", "", ""), unit("ou-4", "", ""), unit("ou-5", "", ""))

	single := scheduledTemplate("single", -3, models.SingleNotification, dsSingle)
	summary := scheduledTemplate("summary", -3, models.CollectiveSummary, dsSummary)

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{single, summary}, sweepDay)
	require.NoError(t, err)

	require.Len(t, batch.Internal, 2)
	assert.Empty(t, batch.External)

	assert.Equal(t, "single", batch.Internal[0].TemplateID)
	assert.Equal(t, "single:ou-1", batch.Internal[0].Body)
	assert.Equal(t, staff, batch.Internal[0].Recipients)

	assert.Equal(t, "summary", batch.Internal[1].TemplateID)
	assert.Equal(t, pendingSummarySubject, batch.Internal[1].Subject)
	assert.Equal(t, "Organisation units : 3\nPeriod : 202602\nDataSet : DataSet ds-2", batch.Internal[1].Body)
	assert.Equal(t, staff, batch.Internal[1].Recipients)
}

func TestBuilder_BuildScheduled_NothingDue(t *testing.T) {
	h := newHarness()
	ds := monthlyDataSet("ds-1", unit("ou-1", "", ""))

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{
		scheduledTemplate("early", -4, models.SingleNotification, ds),
		scheduledTemplate("late", -2, models.SingleNotification, ds),
	}, sweepDay)
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestBuilder_BuildScheduled_AccumulatesAcrossDataSets(t *testing.T) {
	h := newHarness()
	dsA := monthlyDataSet("ds-a", unit("ou-1", "", ""))
	dsB := monthlyDataSet("ds-b", unit("ou-2", "", ""), unit("ou-3", "", ""))
	tmpl := scheduledTemplate("t", -3, models.SingleNotification, dsA, dsB)

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, sweepDay)
	require.NoError(t, err)

	bodies := make([]string, 0, len(batch.Internal))
	for _, m := range batch.Internal {
		bodies = append(bodies, m.Body)
	}
	assert.Equal(t, []string{"t:ou-1", "t:ou-2", "t:ou-3"}, bodies)
}

func TestBuilder_BuildScheduled_LastMatchingTemplateWins(t *testing.T) {
	h := newHarness()
	ds := monthlyDataSet("ds-1", unit("ou-1", "", ""), unit("ou-2", "", ""))
	first := scheduledTemplate("first", -3, models.SingleNotification, ds)
	second := scheduledTemplate("second", -3, models.SingleNotification, ds)

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{first, second}, sweepDay)
	require.NoError(t, err)

	require.Len(t, batch.Internal, 2)
	for _, m := range batch.Internal {
		assert.Equal(t, "second", m.TemplateID)
	}
}

func TestBuilder_BuildScheduled_SkipsInvalidExternalRecipient(t *testing.T) {
	h := newHarness()
	ds := monthlyDataSet("ds-1", unit("ou-1", "+1", ""), unit("ou-2", "", ""), unit("ou-3", "+3", ""))
	tmpl := externalTemplate(scheduledTemplate("sms", 0, models.SingleNotification, ds), models.ChannelSMS)
	overdueDay := time.Date(2026, time.February, 28, 9, 0, 0, 0, time.UTC)

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, overdueDay)
	require.NoError(t, err)

	require.Len(t, batch.External, 2)
	assert.Empty(t, batch.Internal)
	assert.Equal(t, []string{"+1"}, batch.External[0].Recipients.PhoneNumbers)
	assert.Equal(t, []string{"+3"}, batch.External[1].Recipients.PhoneNumbers)
	assert.Equal(t, []models.DeliveryChannel{models.ChannelSMS}, batch.External[1].DeliveryChannels)
}

func TestBuilder_BuildScheduled_ExternalSummaryCountsAllUnits(t *testing.T) {
	h := newHarness()
	ds := monthlyDataSet("ds-1",
		unit("ou-1", "+1", ""),
		unit("ou-2", "", ""),
		unit("ou-3", "+3", ""),
		unit("ou-4", "", ""),
		unit("ou-5", "+5", ""),
	)
	tmpl := externalTemplate(scheduledTemplate("sum", -3, models.CollectiveSummary, ds), models.ChannelSMS)

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, sweepDay)
	require.NoError(t, err)

	require.Len(t, batch.External, 1)
	msg := batch.External[0]
	assert.Equal(t, []string{"+1", "+3", "+5"}, msg.Recipients.PhoneNumbers)
	assert.Contains(t, msg.Body, "Organisation units : 5\n")
}

func TestBuilder_BuildScheduled_OverdueSummaryAcrossDataSets(t *testing.T) {
	h := newHarness()
	ou := unit("ou-1", "", "")
	dsA := monthlyDataSet("ds-a", ou)
	dsB := monthlyDataSet("ds-b", ou, unit("ou-2", "", ""))
	h.complete(dsB, "202602", ou)
	tmpl := scheduledTemplate("overdue", 0, models.CollectiveSummary, dsA, dsB)
	dueDay := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, dueDay)
	require.NoError(t, err)

	require.Len(t, batch.Internal, 1)
	assert.Equal(t, overdueSummarySubject, batch.Internal[0].Subject)
	assert.Equal(t,
		"Organisation units : 1\nPeriod : 202602\nDataSet : DataSet ds-a\n\n"+
			"Organisation units : 1\nPeriod : 202602\nDataSet : DataSet ds-b",
		batch.Internal[0].Body)
}

func TestBuilder_BuildScheduled_OverdueAfterPeriodEnd(t *testing.T) {
	h := newHarness()
	ou1, ou2 := unit("ou-1", "", ""), unit("ou-2", "", "")
	ds := monthlyDataSet("ds-1", ou1, ou2)
	h.complete(ds, "202601", ou2)
	single := scheduledTemplate("single", 3, models.SingleNotification, ds)
	summary := scheduledTemplate("summary", 3, models.CollectiveSummary, ds)

	// January ends on the 31st; three days later is February 3rd.
	now := time.Date(2026, time.February, 3, 6, 0, 0, 0, time.UTC)
	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{single, summary}, now)
	require.NoError(t, err)

	require.Len(t, batch.Internal, 2)
	assert.Equal(t, "single", batch.Internal[0].TemplateID)
	assert.Equal(t, "single:ou-1", batch.Internal[0].Body)
	assert.Equal(t, overdueSummarySubject, batch.Internal[1].Subject)
	assert.Equal(t, "Organisation units : 1\nPeriod : 202601\nDataSet : DataSet ds-1", batch.Internal[1].Body)
}

func TestBuilder_BuildScheduled_OverdueOffsets(t *testing.T) {
	ds := monthlyDataSet("ds-1", unit("ou-1", "", ""))
	periodEnd := time.Date(2026, time.January, 31, 6, 0, 0, 0, time.UTC)

	for k := 1; k <= 5; k++ {
		h := newHarness()
		tmpl := scheduledTemplate("overdue", k, models.SingleNotification, ds)

		onDay, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, periodEnd.AddDate(0, 0, k))
		require.NoError(t, err)
		assert.Len(t, onDay.Internal, 1, "offset %d", k)

		dayAfter, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, periodEnd.AddDate(0, 0, k+1))
		require.NoError(t, err)
		assert.True(t, dayAfter.IsEmpty(), "offset %d, one day late", k)
	}
}

func TestBuilder_BuildScheduled_ReminderBeyondCurrentWeek(t *testing.T) {
	h := newHarness()
	ds := &models.DataSet{ID: "ds-w", Name: "Weekly", PeriodType: period.Weekly, Sources: []*models.OrgUnit{unit("ou-1", "", "")}}
	tmpl := scheduledTemplate("early", -10, models.CollectiveSummary, ds)

	// Thursday Feb 26 plus ten days is Sunday Mar 8, the end of 2026W10.
	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl},
		time.Date(2026, time.February, 26, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, batch.Internal, 1)
	assert.Equal(t, pendingSummarySubject, batch.Internal[0].Subject)
	assert.Equal(t, "Organisation units : 1\nPeriod : 2026W10\nDataSet : Weekly", batch.Internal[0].Body)

	// Ten days after Friday is a Monday, not a week end.
	batch, err = h.builder.BuildScheduled(context.Background(), []*models.Template{
		scheduledTemplate("early", -10, models.SingleNotification, ds),
	}, time.Date(2026, time.February, 27, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestBuilder_BuildScheduled_StoreFailureAborts(t *testing.T) {
	h := newHarness()
	h.completions.err = errors.New("connection reset")
	ds := monthlyDataSet("ds-1", unit("ou-1", "", ""))

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{
		scheduledTemplate("t", -3, models.SingleNotification, ds),
	}, sweepDay)
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCompletionLookupFailed))
}

func TestBuilder_BuildScheduled_EmptyGroupSkipsInternalMessages(t *testing.T) {
	h := newHarness()
	ds := monthlyDataSet("ds-1", unit("ou-1", "", ""))
	tmpl := scheduledTemplate("t", -3, models.SingleNotification, ds)
	tmpl.RecipientGroupID = "nobody"

	batch, err := h.builder.BuildScheduled(context.Background(), []*models.Template{tmpl}, sweepDay)
	require.NoError(t, err)
	assert.True(t, batch.IsEmpty())
}

func TestBuilder_BuildCompletion(t *testing.T) {
	h := newHarness()
	good := unit("ou-1", "+1", "")
	ds := monthlyDataSet("ds-1", good)
	c := &models.SubmissionCase{DataSet: ds, OrgUnit: good, CompletedBy: "alice"}

	internal := &models.Template{ID: "in", Trigger: models.TriggerDataSetCompletion, RecipientKind: models.RecipientUserGroup, RecipientGroupID: "staff"}
	sms := &models.Template{ID: "sms", Trigger: models.TriggerDataSetCompletion, RecipientKind: models.RecipientOrgUnitContact, DeliveryChannels: []models.DeliveryChannel{models.ChannelSMS}}
	email := &models.Template{ID: "email", Trigger: models.TriggerDataSetCompletion, RecipientKind: models.RecipientOrgUnitContact, DeliveryChannels: []models.DeliveryChannel{models.ChannelEmail}}

	batch, err := h.builder.BuildCompletion(context.Background(), c, []*models.Template{internal, sms, email})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRecipient)
	require.Len(t, batch.Internal, 1)
	require.Len(t, batch.External, 1)
	assert.Equal(t, "sms", batch.External[0].TemplateID)
	assert.Equal(t, []string{"+1"}, batch.External[0].Recipients.PhoneNumbers)
}

func TestMessageBatch(t *testing.T) {
	var nilBatch *MessageBatch
	assert.True(t, nilBatch.IsEmpty())

	b := &MessageBatch{Internal: []models.InternalMessage{{TemplateID: "a"}}}
	b.Merge(&MessageBatch{External: []models.ExternalMessage{{TemplateID: "b"}}})
	b.Merge(nil)
	assert.Equal(t, 2, b.Count())
	assert.False(t, b.IsEmpty())
}
