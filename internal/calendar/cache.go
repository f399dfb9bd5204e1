package calendar

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/christopherklint97/skedule/internal/interval"
)

const defaultCacheSize = 256

// CachedSource memoises busy lookups per (user, range) for a short TTL.
// Errors are never cached.
type CachedSource struct {
	next  BusySource
	cache *expirable.LRU[string, []interval.Interval]
}

// NewCachedSource wraps next. A non-positive ttl returns next unchanged.
func NewCachedSource(next BusySource, size int, ttl time.Duration) BusySource {
	if ttl <= 0 {
		return next
	}
	if size <= 0 {
		size = defaultCacheSize
	}
	return &CachedSource{
		next:  next,
		cache: expirable.NewLRU[string, []interval.Interval](size, nil, ttl),
	}
}

func (c *CachedSource) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	key := userID + "|" + interval.New(start, end).Key()
	if ivs, ok := c.cache.Get(key); ok {
		return ivs, nil
	}

	ivs, err := c.next.FetchBusy(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, ivs)
	return ivs, nil
}

// Invalidate drops every cached entry, e.g. after an event was created.
func (c *CachedSource) Invalidate() {
	c.cache.Purge()
}

type purgingCreator struct {
	next  EventCreator
	cache *CachedSource
}

func (p purgingCreator) CreateEvent(ctx context.Context, userID string, ev NewEvent) (string, error) {
	id, err := p.next.CreateEvent(ctx, userID, ev)
	if err == nil {
		p.cache.Invalidate()
	}
	return id, err
}

// InvalidateOnCreate wraps next so that each created event purges busy's
// cache. next is returned as is when busy does not cache or next is nil.
func InvalidateOnCreate(busy BusySource, next EventCreator) EventCreator {
	cached, ok := busy.(*CachedSource)
	if !ok || next == nil {
		return next
	}
	return purgingCreator{next: next, cache: cached}
}
