package hailmap

import (
	"context"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
)

// EnrichmentStatus is the lookup state of a single event.
type EnrichmentStatus string

const (
	StatusUnresolved EnrichmentStatus = "unresolved"
	StatusResolving  EnrichmentStatus = "resolving"
	StatusResolved   EnrichmentStatus = "resolved"
)

// enrichmentCache maps event ids of one feed load to their enrichment. It is
// replaced, never cleared, on reload so in-flight lookups for the old load
// complete into an orphaned cache.
type enrichmentCache struct {
	entries map[int]*enrichmentEntry
}

type enrichmentEntry struct {
	status EnrichmentStatus
	result domain.Enrichment
	done   chan struct{} // closed once status is resolved
}

func newEnrichmentCache() *enrichmentCache {
	return &enrichmentCache{entries: make(map[int]*enrichmentEntry)}
}

func (ec *enrichmentCache) status(id int) EnrichmentStatus {
	if e, ok := ec.entries[id]; ok {
		return e.status
	}
	return StatusUnresolved
}

func (ec *enrichmentCache) resolved(id int) (domain.Enrichment, bool) {
	e, ok := ec.entries[id]
	if !ok || e.status != StatusResolved {
		return domain.Enrichment{}, false
	}
	return e.result, true
}

// Detail is the detail view of one event.
type Detail struct {
	Event    domain.HailEvent `json:"event"`
	Status   EnrichmentStatus `json:"status"`
	Loading  bool             `json:"loading"`
	Selected bool             `json:"selected"`
	Source   string           `json:"source,omitempty"`
}

// Detail returns the event with its enrichment if resolved.
func (c *Controller) Detail(id int) (Detail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detailLocked(id)
}

func (c *Controller) detailLocked(id int) (Detail, error) {
	ev, ok := c.eventLocked(id)
	if !ok {
		return Detail{}, ErrUnknownEvent
	}
	d := Detail{
		Event:    ev,
		Status:   c.enrichment.status(id),
		Selected: c.state.selectedID == id,
	}
	if en, ok := c.enrichment.resolved(id); ok {
		d.Event = ev.WithEnrichment(en)
		d.Source = string(en.Source)
	}
	d.Loading = d.Status == StatusResolving
	return d, nil
}

// Select marks an event as selected and resolves its enrichment at most once
// per feed load. Concurrent selections of the same event share one lookup.
// The lookup itself is detached from ctx cancellation so an abandoned request
// cannot cache a degraded answer; callers stop waiting when ctx is done.
func (c *Controller) Select(ctx context.Context, id int) (Detail, error) {
	c.mu.Lock()
	ev, ok := c.eventLocked(id)
	if !ok {
		c.mu.Unlock()
		return Detail{}, ErrUnknownEvent
	}
	c.state.selectedID = id
	cache := c.enrichment

	entry, exists := cache.entries[id]
	if !exists {
		entry = &enrichmentEntry{status: StatusResolving, done: make(chan struct{})}
		cache.entries[id] = entry
		c.mu.Unlock()

		result := c.enricher.Enrich(context.WithoutCancel(ctx), ev.Lat, ev.Lon)

		c.mu.Lock()
		entry.result = result
		entry.status = StatusResolved
		close(entry.done)
		c.metrics.Enrichments.WithLabelValues(string(result.Source)).Inc()
	} else if entry.status == StatusResolving {
		c.mu.Unlock()
		select {
		case <-entry.done:
		case <-ctx.Done():
			return c.Detail(id)
		}
		c.mu.Lock()
	}
	defer c.mu.Unlock()

	if cache != c.enrichment {
		return Detail{}, ErrSuperseded
	}
	return c.detailLocked(id)
}
