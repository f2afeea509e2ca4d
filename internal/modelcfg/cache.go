package modelcfg

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shortgen/internal/domain"
)

// Source loads the current default model for every role.
type Source interface {
	Load(ctx context.Context) (domain.ModelSet, error)
}

// Cache holds the resolved model set for ttl. It is injected where models are
// resolved and invalidated explicitly by administrators.
type Cache struct {
	source Source
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	value     domain.ModelSet
	fetchedAt time.Time
	loaded    bool
}

func NewCache(source Source, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{source: source, ttl: ttl, logger: logger, now: time.Now}
}

// Get returns the cached set, refreshing it through the source when stale.
// A failed refresh keeps serving the previous value.
func (c *Cache) Get(ctx context.Context) (domain.ModelSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}
	value, err := c.source.Load(ctx)
	if err != nil {
		if c.loaded {
			c.logger.Warn().Err(err).Time("fetched_at", c.fetchedAt).Msg("model config refresh failed, serving stale value")
			return c.value, nil
		}
		return domain.ModelSet{}, err
	}
	c.value = value
	c.fetchedAt = c.now()
	c.loaded = true
	return value, nil
}

// Invalidate drops the cached value so the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.fetchedAt = time.Time{}
}

// FetchedAt reports when the cached value was loaded, zero when empty.
func (c *Cache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}
