package materials

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/shopspring/decimal"
)

// Cache is the subset of the redis client used for read-through caching.
type Cache interface {
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	MaterialKey(name string) string
}

// CachedCatalog serves FindByNames from the cache and falls through to the
// wrapped catalog for misses. Cache failures never fail a lookup.
type CachedCatalog struct {
	next  Catalog
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedCatalog(next Catalog, cache Cache, ttl time.Duration, logg *logger.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache, ttl: ttl, logg: logg}
}

func (c *CachedCatalog) FindByNames(ctx context.Context, names []string) ([]Record, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.cache.MaterialKey(n)
	}

	hits, err := c.cache.MGet(ctx, keys...)
	if err != nil {
		c.warn(ctx, "materials.cache_read_failed", err)
		hits = nil
	}

	out := make([]Record, 0, len(names))
	var misses []string
	for i, n := range names {
		raw, ok := hits[keys[i]]
		if !ok {
			misses = append(misses, n)
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			misses = append(misses, n)
			continue
		}
		out = append(out, rec)
	}
	if len(misses) == 0 {
		return out, nil
	}

	found, err := c.next.FindByNames(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, rec := range found {
		payload, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if err := c.cache.Set(ctx, c.cache.MaterialKey(rec.Name), payload, c.ttl); err != nil {
			c.warn(ctx, "materials.cache_write_failed", err)
		}
	}
	return append(out, found...), nil
}

func (c *CachedCatalog) List(ctx context.Context) ([]Record, error) {
	return c.next.List(ctx)
}

func (c *CachedCatalog) Get(ctx context.Context, name string) (Record, error) {
	return c.next.Get(ctx, name)
}

func (c *CachedCatalog) Search(ctx context.Context, pattern string) ([]Record, error) {
	return c.next.Search(ctx, pattern)
}

func (c *CachedCatalog) Upsert(ctx context.Context, record Record) (Record, error) {
	out, err := c.next.Upsert(ctx, record)
	if err != nil {
		return Record{}, err
	}
	c.invalidate(ctx, record.Name)
	return out, nil
}

func (c *CachedCatalog) UpdateCost(ctx context.Context, name string, cost decimal.Decimal) (Record, error) {
	out, err := c.next.UpdateCost(ctx, name, cost)
	if err != nil {
		return Record{}, err
	}
	c.invalidate(ctx, name)
	return out, nil
}

func (c *CachedCatalog) invalidate(ctx context.Context, name string) {
	if err := c.cache.Del(ctx, c.cache.MaterialKey(name)); err != nil {
		c.warn(ctx, "materials.cache_invalidate_failed", err)
	}
}

func (c *CachedCatalog) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
