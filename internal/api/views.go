package api

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/hailmap"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ControllerFactory builds a fresh map controller for a new visitor.
type ControllerFactory func() *hailmap.Controller

// ViewRegistry keeps one map controller per visitor view id. Controllers idle
// for longer than the idle timeout are evicted; when full, the least recently
// used controller makes room for a new one.
type ViewRegistry struct {
	factory ControllerFactory
	idle    time.Duration
	max     int
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu    sync.Mutex
	views map[string]*viewEntry
}

type viewEntry struct {
	ctl      *hailmap.Controller
	lastSeen time.Time
}

// NewViewRegistry creates a registry. maxViews <= 0 means unbounded.
func NewViewRegistry(factory ControllerFactory, idle time.Duration, maxViews int, clock clockwork.Clock, metrics *observability.Metrics) *ViewRegistry {
	return &ViewRegistry{
		factory: factory,
		idle:    idle,
		max:     maxViews,
		clock:   clock,
		metrics: metrics,
		views:   make(map[string]*viewEntry),
	}
}

// Get returns the controller for id, creating it on first use.
func (r *ViewRegistry) Get(id string) *hailmap.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if e, ok := r.views[id]; ok {
		e.lastSeen = now
		return e.ctl
	}
	if r.max > 0 && len(r.views) >= r.max {
		r.evictOldestLocked()
	}
	e := &viewEntry{ctl: r.factory(), lastSeen: now}
	r.views[id] = e
	r.metrics.ActiveViews.Set(float64(len(r.views)))
	return e.ctl
}

// Len returns the number of live controllers.
func (r *ViewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// EvictIdle drops controllers not seen within the idle timeout and returns
// how many were dropped.
func (r *ViewRegistry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock.Now().Add(-r.idle)
	n := 0
	for id, e := range r.views {
		if e.lastSeen.Before(cutoff) {
			delete(r.views, id)
			n++
		}
	}
	r.metrics.ActiveViews.Set(float64(len(r.views)))
	return n
}

// Run evicts idle controllers every half idle timeout until ctx is done.
func (r *ViewRegistry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.EvictIdle()
		}
	}
}

func (r *ViewRegistry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range r.views {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	delete(r.views, oldestID)
}
