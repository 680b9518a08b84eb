package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/models"
)

// TemplateSource is the uncached template lookup.
type TemplateSource interface {
	GetTemplatesByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Template, error)
	GetTemplatesForDataSet(ctx context.Context, dataSetID string) ([]*models.Template, error)
}

// TemplateStore caches template lookups for ttl. Cached templates embed their
// datasets, source units and unit contacts, so a change to any of those is
// seen at most ttl later. Completion state is never cached since it changes
// between sweeps.
type TemplateStore struct {
	next  TemplateSource
	cache *Cache[[]*models.Template]
}

func NewTemplateStore(next TemplateSource, client redis.Cmdable, ttl time.Duration, log logger.Logger) *TemplateStore {
	return &TemplateStore{
		next:  next,
		cache: New[[]*models.Template](client, "dsn:templates:", ttl, logger.ForComponent(log, "template-cache")),
	}
}

func (s *TemplateStore) GetTemplatesByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Template, error) {
	return s.cache.GetOrCompute(ctx, "trigger:"+string(trigger), func(ctx context.Context) ([]*models.Template, error) {
		return s.next.GetTemplatesByTrigger(ctx, trigger)
	})
}

func (s *TemplateStore) GetTemplatesForDataSet(ctx context.Context, dataSetID string) ([]*models.Template, error) {
	return s.cache.GetOrCompute(ctx, "dataset:"+dataSetID, func(ctx context.Context) ([]*models.Template, error) {
		return s.next.GetTemplatesForDataSet(ctx, dataSetID)
	})
}
