package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/port/cache"
)

// eventCache is a typed wrapper over the cache port holding serialized event
// snapshots keyed by ID. All methods are nil-receiver safe so services can
// run without a cache.
type eventCache struct {
	c   cache.Cache
	ttl time.Duration
}

// NewEventCache wraps the given cache for event snapshots.
func NewEventCache(c cache.Cache, ttl time.Duration) *eventCache {
	return &eventCache{c: c, ttl: ttl}
}

func cacheKey(id string) string { return "event:" + id }

func (e *eventCache) get(ctx context.Context, id string) (*event.GameEvent, bool) {
	if e == nil || e.c == nil {
		return nil, false
	}
	data, ok, err := e.c.Get(ctx, cacheKey(id))
	if err != nil || !ok {
		return nil, false
	}
	var ev event.GameEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		slog.Warn("corrupt cached event, dropping", "event_id", id, "error", err)
		_ = e.c.Delete(ctx, cacheKey(id))
		return nil, false
	}
	return &ev, true
}

func (e *eventCache) set(ctx context.Context, ev *event.GameEvent) {
	if e == nil || e.c == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := e.c.Set(ctx, cacheKey(ev.ID), data, e.ttl); err != nil {
		slog.Warn("cache set failed", "event_id", ev.ID, "error", err)
	}
}

func (e *eventCache) invalidate(ctx context.Context, id string) {
	if e == nil || e.c == nil {
		return
	}
	if err := e.c.Delete(ctx, cacheKey(id)); err != nil {
		slog.Warn("cache invalidate failed", "event_id", id, "error", err)
	}
}
