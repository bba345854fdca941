// Package hailmap holds the state machine behind the hail impact map: which
// feed is loaded, the optional ZIP radius filter, the selected event and its
// lazily resolved enrichment.
package hailmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrSuperseded is returned when a newer request of the same kind was
	// issued while this one was in flight. Its result has been discarded.
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrUnknownEvent is returned for ids not present in the loaded feed.
	ErrUnknownEvent = errors.New("unknown hail event")
)

// FeedSource downloads and parses the hail feed for a YYMMDD date.
type FeedSource interface {
	FetchFeed(ctx context.Context, feedDate string) ([]domain.HailEvent, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to resolve "today" and "yesterday".
func WithClock(c clockwork.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLocation sets the time zone whose calendar defines "today".
func WithLocation(loc *time.Location) Option {
	return func(ctl *Controller) { ctl.loc = loc }
}

// Controller is a single visitor's hail map. It is safe for concurrent use.
// Feed loads and ZIP searches each carry a generation number; only the
// result of the most recently issued request of each kind is applied.
type Controller struct {
	feed     FeedSource
	zips     domain.ZipResolver
	enricher domain.Enricher
	clock    clockwork.Clock
	loc      *time.Location
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu         sync.Mutex
	state      state
	loadGen    uint64
	zipGen     uint64
	enrichment *enrichmentCache
}

type state struct {
	dateRange  domain.DateRange
	customDate string
	zip        string
	zipFilter  *domain.ZipLocation
	mapCenter  domain.Coordinates
	events     []domain.HailEvent
	filtered   []domain.HailEvent
	message    string
	loading    bool
	selectedID int
}

// New creates a controller showing the built-in sample events.
func New(feed FeedSource, zips domain.ZipResolver, enricher domain.Enricher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Controller {
	c := &Controller{
		feed:       feed,
		zips:       zips,
		enricher:   enricher,
		clock:      domain.Clock(),
		loc:        time.Local,
		logger:     logger,
		metrics:    metrics,
		enrichment: newEnrichmentCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.dateRange = domain.RangeSample
	c.loadSampleLocked("")
	return c
}

// SetDateRange selects a feed and loads it. Sample data needs no network.
// Validation and fetch failures fall back to the sample events with an
// explanatory message; the selected range is kept either way. A non-nil
// error is returned only for validation failures and ErrSuperseded.
func (c *Controller) SetDateRange(ctx context.Context, r domain.DateRange, customDate string) (View, error) {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.state.dateRange = r
	c.state.customDate = customDate
	c.state.message = ""

	if r == domain.RangeSample {
		c.loadSampleLocked("")
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}

	feedDate, err := domain.FeedDateFor(r, customDate, c.clock.Now().In(c.loc))
	if err != nil {
		c.loadSampleLocked(validationMessage(err))
		v := c.viewLocked()
		c.mu.Unlock()
		return v, err
	}
	c.state.loading = true
	c.mu.Unlock()

	events, fetchErr := c.feed.FetchFeed(ctx, feedDate)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.loadGen {
		c.metrics.SupersededResults.WithLabelValues("load").Inc()
		return c.viewLocked(), ErrSuperseded
	}
	c.state.loading = false

	if fetchErr != nil {
		outcome := "error"
		if errors.Is(fetchErr, domain.ErrEmptyFeed) {
			outcome = "empty"
		}
		c.metrics.FeedFetches.WithLabelValues(outcome).Inc()
		c.logger.Warn("hail feed unavailable, showing sample data", "date", feedDate, "error", fetchErr)
		c.loadSampleLocked(fetchFailureMessage(fetchErr, r, customDate))
		return c.viewLocked(), nil
	}

	c.metrics.FeedFetches.WithLabelValues("success").Inc()
	c.metrics.FeedEvents.Observe(float64(len(events)))
	c.replaceEventsLocked(events)
	if c.state.zipFilter != nil {
		c.state.filtered = domain.FilterWithinRadius(events, c.state.zipFilter.Coordinates(), domain.ZIPRadiusMiles)
	}
	return c.viewLocked(), nil
}

// SearchZIP validates and resolves a ZIP, then filters the events loaded at
// the time the answer arrives to those within 50 miles of its centroid. An
// empty result is reported through the view message, not as an error.
func (c *Controller) SearchZIP(ctx context.Context, zip string) (View, error) {
	if err := domain.ValidateZIP(zip); err != nil {
		c.metrics.ZIPLookups.WithLabelValues("invalid").Inc()
		return c.View(), err
	}

	c.mu.Lock()
	c.zipGen++
	gen := c.zipGen
	c.mu.Unlock()

	loc, err := c.zips.ResolveZIP(ctx, zip)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.zipGen {
		c.metrics.SupersededResults.WithLabelValues("zip").Inc()
		return c.viewLocked(), ErrSuperseded
	}
	if err != nil {
		c.metrics.ZIPLookups.WithLabelValues("not_found").Inc()
		c.logger.Info("zip lookup failed", "zip", zip, "error", err)
		if !errors.Is(err, domain.ErrZIPNotFound) {
			err = fmt.Errorf("%w: %w", domain.ErrZIPNotFound, err)
		}
		return c.viewLocked(), err
	}

	c.state.zip = zip
	c.state.zipFilter = &loc
	c.state.mapCenter = loc.Coordinates()
	c.state.filtered = domain.FilterWithinRadius(c.state.events, loc.Coordinates(), domain.ZIPRadiusMiles)
	c.state.message = ""
	if len(c.state.filtered) == 0 {
		c.metrics.ZIPLookups.WithLabelValues("empty").Inc()
		c.state.message = fmt.Sprintf("No hail events found within %g miles of ZIP %s for this date. "+
			"Try a different date during spring/summer hail season!", domain.ZIPRadiusMiles, zip)
	} else {
		c.metrics.ZIPLookups.WithLabelValues("success").Inc()
	}
	return c.viewLocked(), nil
}

// ClearFilter removes the ZIP filter, shows every loaded event and resets
// the map center. Any in-flight ZIP search is superseded.
func (c *Controller) ClearFilter() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zipGen++
	c.clearFilterLocked()
	c.state.filtered = c.state.events
	c.state.message = ""
	return c.viewLocked()
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) loadSampleLocked(message string) {
	c.replaceEventsLocked(domain.SampleEvents())
	c.clearFilterLocked()
	c.state.loading = false
	c.state.message = message
}

// replaceEventsLocked installs a new event list. Enrichment results and the
// selection belong to the previous list and are dropped with it.
func (c *Controller) replaceEventsLocked(events []domain.HailEvent) {
	c.state.events = events
	c.state.filtered = events
	c.state.selectedID = 0
	c.enrichment = newEnrichmentCache()
}

func (c *Controller) clearFilterLocked() {
	c.state.zip = ""
	c.state.zipFilter = nil
	c.state.mapCenter = domain.DefaultCenter
}

func (c *Controller) eventLocked(id int) (domain.HailEvent, bool) {
	// Ids are 1-based and sequential per load.
	if id >= 1 && id <= len(c.state.events) && c.state.events[id-1].ID == id {
		return c.state.events[id-1], true
	}
	for _, e := range c.state.events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.HailEvent{}, false
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrDateRequired):
		return "Please select a date"
	case errors.Is(err, domain.ErrInvalidDate), errors.Is(err, domain.ErrDateOutOfRange):
		return "Please select a date between 2012-01-01 and today - Showing sample data instead"
	default:
		return err.Error() + " - Showing sample data instead"
	}
}

func fetchFailureMessage(err error, r domain.DateRange, customDate string) string {
	if errors.Is(err, domain.ErrEmptyFeed) {
		return "No hail reports for this date - Showing sample data instead"
	}
	what := "this date"
	if r == domain.RangeCustom && customDate != "" {
		what = customDate
	}
	return "No hail reports found for " + what + " - Showing sample data instead"
}
