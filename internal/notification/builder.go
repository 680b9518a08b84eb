package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/common/metrics"
	"dataset-notifier/internal/models"
	"dataset-notifier/internal/period"
)

const (
	pendingSummarySubject = "Pending DataSet Summary"
	overdueSummarySubject = "Overdue DataSet Summary"

	summaryText      = "Organisation units : %d\nPeriod : %s\nDataSet : %s"
	summarySeparator = "\n\n"
)

// Builder turns templates into message batches.
type Builder struct {
	evaluator  *Evaluator
	resolver   *Resolver
	renderer   Renderer
	periods    PeriodFormatter
	maxWorkers int
	logger     logger.Logger
}

// NewBuilder creates a builder. maxWorkers bounds evaluation and message
// construction fan-out; zero means GOMAXPROCS.
func NewBuilder(evaluator *Evaluator, resolver *Resolver, renderer Renderer, periods PeriodFormatter, maxWorkers int, log logger.Logger) *Builder {
	return &Builder{
		evaluator:  evaluator,
		resolver:   resolver,
		renderer:   renderer,
		periods:    periods,
		maxWorkers: maxWorkers,
		logger:     logger.ForComponent(log, "batch-builder"),
	}
}

// dueEntry pairs a due case with the template that matched it.
type dueEntry struct {
	c models.SubmissionCase
	t *models.Template
}

type evalJob struct {
	c models.SubmissionCase
	t *models.Template
}

// built is the outcome of constructing one message.
type built struct {
	internal *models.InternalMessage
	external *models.ExternalMessage
	err      error
}

// BuildScheduled builds the sweep batch for templates as of now. Store
// failures abort the build. A message whose recipients cannot be resolved
// is logged and skipped.
func (b *Builder) BuildScheduled(ctx context.Context, templates []*models.Template, now time.Time) (*MessageBatch, error) {
	groups := partition(templates)
	batch := &MessageBatch{}

	single, err := b.buildSingleNotifications(ctx, groups[models.SingleNotification], now)
	if err != nil {
		return nil, err
	}
	batch.Merge(single)

	summary, err := b.buildSummaryNotifications(ctx, groups[models.CollectiveSummary], now)
	if err != nil {
		return nil, err
	}
	batch.Merge(summary)

	return batch, nil
}

// BuildCompletion builds one message per template for an already completed
// case. The returned batch holds every message that could be built; the
// error joins the failures of the rest.
func (b *Builder) BuildCompletion(ctx context.Context, c *models.SubmissionCase, templates []*models.Template) (*MessageBatch, error) {
	batch := &MessageBatch{}
	var errs []error
	for _, t := range templates {
		var members []models.User
		if !t.RecipientKind.IsExternal() {
			users, err := b.resolver.Internal(ctx, t)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			members = users
		}
		res := b.singleMessage(dueEntry{c: *c, t: t}, members)
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		b.add(batch, res, models.SingleNotification)
	}

	b.logger.Info(fmt.Sprintf("%d single notifications created", batch.Count()), map[string]interface{}{
		"dataSetId": c.Key().DataSetID,
		"orgUnitId": c.Key().OrgUnitID,
		"failed":    len(errs),
	})
	return batch, errors.Join(errs...)
}

// partition buckets templates by send strategy. Every known strategy gets
// a bucket, possibly empty.
func partition(templates []*models.Template) map[models.SendStrategy][]*models.Template {
	groups := make(map[models.SendStrategy][]*models.Template, len(models.SendStrategies))
	for _, s := range models.SendStrategies {
		groups[s] = nil
	}
	for _, t := range templates {
		groups[t.SendStrategy] = append(groups[t.SendStrategy], t)
	}
	return groups
}

// casesFor expands every source unit of ds into a case for the period
// containing t's target due date, now shifted back by the offset. That
// period's end date equals the target only when the target is a period end.
// ok is false when the dataset's period type is unusable.
func (b *Builder) casesFor(t *models.Template, ds *models.DataSet, now time.Time) (cases []models.SubmissionCase, p period.Period, ok bool) {
	p, err := ds.PeriodType.CreatePeriod(now.AddDate(0, 0, -t.RelativeScheduledDays))
	if err != nil {
		b.logger.Warn("skipping dataset with unusable period type", map[string]interface{}{
			"templateId": t.ID,
			"dataSetId":  ds.ID,
			"error":      err,
		})
		return nil, p, false
	}
	cases = make([]models.SubmissionCase, 0, len(ds.Sources))
	for _, unit := range ds.Sources {
		cases = append(cases, models.SubmissionCase{
			DataSet:                ds,
			Period:                 p,
			OrgUnit:                unit,
			AttributeOptionComboID: models.DefaultAttributeOptionCombo,
		})
	}
	return cases, p, true
}

// evaluate runs the window evaluator over jobs with bounded parallelism.
// Results are in job order.
func (b *Builder) evaluate(ctx context.Context, jobs []evalJob, now time.Time) ([]bool, error) {
	mapper := iter.Mapper[evalJob, bool]{MaxGoroutines: b.maxWorkers}
	return mapper.MapErr(jobs, func(j *evalJob) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return b.evaluator.IsDue(ctx, j.c, j.t, now)
	})
}

// dueCases evaluates every case of every template. When several templates
// match the same case, the last one in input order wins.
func (b *Builder) dueCases(ctx context.Context, templates []*models.Template, now time.Time) ([]dueEntry, error) {
	var jobs []evalJob
	for _, t := range templates {
		for _, ds := range t.DataSets {
			cases, _, _ := b.casesFor(t, ds, now)
			for _, c := range cases {
				jobs = append(jobs, evalJob{c: c, t: t})
			}
		}
	}

	due, err := b.evaluate(ctx, jobs, now)
	if err != nil {
		return nil, err
	}

	var entries []dueEntry
	index := make(map[models.CaseKey]int)
	for i, ok := range due {
		if !ok {
			continue
		}
		key := jobs[i].c.Key()
		if at, seen := index[key]; seen {
			entries[at].t = jobs[i].t
			continue
		}
		index[key] = len(entries)
		entries = append(entries, dueEntry{c: jobs[i].c, t: jobs[i].t})
	}
	metrics.DueCases.WithLabelValues(models.SingleNotification.String()).Add(float64(len(entries)))
	return entries, nil
}

func (b *Builder) buildSingleNotifications(ctx context.Context, templates []*models.Template, now time.Time) (*MessageBatch, error) {
	batch := &MessageBatch{}
	if len(templates) == 0 {
		return batch, nil
	}

	entries, err := b.dueCases(ctx, templates, now)
	if err != nil {
		return nil, err
	}

	members := b.groupMembers(ctx, entries)

	mapper := iter.Mapper[dueEntry, built]{MaxGoroutines: b.maxWorkers}
	results := mapper.Map(entries, func(e *dueEntry) built {
		if !e.t.RecipientKind.IsExternal() {
			m := members[e.t.ID]
			if m.err != nil {
				return built{err: m.err}
			}
			return b.singleMessage(*e, m.users)
		}
		return b.singleMessage(*e, nil)
	})

	for i, res := range results {
		if res.err != nil {
			b.logger.Warn("skipping notification", map[string]interface{}{
				"templateId": entries[i].t.ID,
				"orgUnitId":  entries[i].c.Key().OrgUnitID,
				"error":      res.err,
			})
			continue
		}
		b.add(batch, res, models.SingleNotification)
	}

	b.logger.Info(fmt.Sprintf("%d single notifications created", batch.Count()), map[string]interface{}{
		"dueCases": len(entries),
	})
	return batch, nil
}

type groupResult struct {
	users []models.User
	err   error
}

// groupMembers resolves each internal template's group once.
func (b *Builder) groupMembers(ctx context.Context, entries []dueEntry) map[string]groupResult {
	out := make(map[string]groupResult)
	for _, e := range entries {
		if e.t.RecipientKind.IsExternal() {
			continue
		}
		if _, done := out[e.t.ID]; done {
			continue
		}
		users, err := b.resolver.Internal(ctx, e.t)
		out[e.t.ID] = groupResult{users: users, err: err}
	}
	return out
}

// singleMessage renders one per-case message. members is used for internal
// templates; external templates resolve from the case's org unit.
func (b *Builder) singleMessage(e dueEntry, members []models.User) built {
	var recipients models.ExternalRecipients
	if e.t.RecipientKind.IsExternal() {
		r, err := b.resolver.ExternalForCase(e.t, e.c.OrgUnit)
		if err != nil {
			return built{err: err}
		}
		recipients = r
	}

	rendered, err := b.renderer.Render(&e.c, e.t)
	if err != nil {
		return built{err: apperrors.NewRenderFailedError(e.t.ID, err)}
	}

	if e.t.RecipientKind.IsExternal() {
		return built{external: &models.ExternalMessage{
			TemplateID:       e.t.ID,
			Subject:          rendered.Subject,
			Body:             rendered.Body,
			Recipients:       recipients,
			DeliveryChannels: e.t.DeliveryChannels,
		}}
	}
	return built{internal: &models.InternalMessage{
		TemplateID: e.t.ID,
		Subject:    rendered.Subject,
		Body:       rendered.Body,
		Recipients: members,
	}}
}

func (b *Builder) buildSummaryNotifications(ctx context.Context, templates []*models.Template, now time.Time) (*MessageBatch, error) {
	batch := &MessageBatch{}
	for _, t := range templates {
		text, due, err := b.summaryText(ctx, t, now)
		if err != nil {
			return nil, err
		}
		metrics.DueCases.WithLabelValues(models.CollectiveSummary.String()).Add(float64(due))

		res, err := b.summaryMessage(ctx, t, text)
		if err != nil {
			b.logger.Warn("skipping summary notification", map[string]interface{}{
				"templateId": t.ID,
				"error":      err,
			})
			continue
		}
		b.add(batch, res, models.CollectiveSummary)
	}

	b.logger.Info(fmt.Sprintf("%d summary notifications created", batch.Count()), nil)
	return batch, nil
}

// summaryText counts the due units of each of t's datasets and returns one
// text block per dataset, along with the total due count.
func (b *Builder) summaryText(ctx context.Context, t *models.Template, now time.Time) (string, int, error) {
	blocks := make([]string, 0, len(t.DataSets))
	total := 0
	for _, ds := range t.DataSets {
		cases, p, ok := b.casesFor(t, ds, now)
		if !ok {
			continue
		}
		jobs := make([]evalJob, len(cases))
		for i, c := range cases {
			jobs[i] = evalJob{c: c, t: t}
		}
		due, err := b.evaluate(ctx, jobs, now)
		if err != nil {
			return "", 0, err
		}
		count := 0
		for _, ok := range due {
			if ok {
				count++
			}
		}
		total += count

		blocks = append(blocks, fmt.Sprintf(summaryText, count, b.periods.FormatPeriod(p), ds.Name))
	}
	return strings.Join(blocks, summarySeparator), total, nil
}

func (b *Builder) summaryMessage(ctx context.Context, t *models.Template, text string) (built, error) {
	subject := overdueSummarySubject
	if t.IsPendingReminder() {
		subject = pendingSummarySubject
	}

	if t.RecipientKind.IsExternal() {
		recipients, err := b.resolver.ExternalForDataSets(t, t.DataSets...)
		if err != nil {
			return built{}, err
		}
		return built{external: &models.ExternalMessage{
			TemplateID:       t.ID,
			Subject:          subject,
			Body:             text,
			Recipients:       recipients,
			DeliveryChannels: t.DeliveryChannels,
		}}, nil
	}

	users, err := b.resolver.Internal(ctx, t)
	if err != nil {
		return built{}, err
	}
	return built{internal: &models.InternalMessage{
		TemplateID: t.ID,
		Subject:    subject,
		Body:       text,
		Recipients: users,
	}}, nil
}

func (b *Builder) add(batch *MessageBatch, res built, strategy models.SendStrategy) {
	switch {
	case res.internal != nil:
		batch.Internal = append(batch.Internal, *res.internal)
		metrics.NotificationsBuilt.WithLabelValues(strategy.String(), string(models.RecipientUserGroup)).Inc()
	case res.external != nil:
		batch.External = append(batch.External, *res.external)
		metrics.NotificationsBuilt.WithLabelValues(strategy.String(), string(models.RecipientOrgUnitContact)).Inc()
	}
}
