package hailmap_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/hailmap"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes ---

type feedResult struct {
	events []domain.HailEvent
	err    error
	gate   chan struct{} // when set, FetchFeed blocks until closed
}

type fakeFeed struct {
	mu      sync.Mutex
	results map[string]feedResult
	calls   []string
	started chan string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{results: map[string]feedResult{}, started: make(chan string, 8)}
}

func (f *fakeFeed) set(date string, r feedResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[date] = r
}

func (f *fakeFeed) FetchFeed(ctx context.Context, feedDate string) ([]domain.HailEvent, error) {
	f.mu.Lock()
	r, ok := f.results[feedDate]
	f.calls = append(f.calls, feedDate)
	f.mu.Unlock()
	f.started <- feedDate
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return r.events, r.err
}

type fakeZips struct {
	locations map[string]domain.ZipLocation
	gate      map[string]chan struct{}
	started   chan string
}

func (z *fakeZips) ResolveZIP(_ context.Context, zip string) (domain.ZipLocation, error) {
	if z.started != nil {
		z.started <- zip
	}
	if g, ok := z.gate[zip]; ok {
		<-g
	}
	loc, ok := z.locations[zip]
	if !ok {
		return domain.ZipLocation{}, domain.ErrZIPNotFound
	}
	return loc, nil
}

type fakeEnricher struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
}

func (e *fakeEnricher) Enrich(_ context.Context, lat, _ float64) domain.Enrichment {
	e.calls.Add(1)
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.gate != nil {
		<-e.gate
	}
	if lat > 33 {
		return domain.Enrichment{ZIP: "75074", Population: 1500, Source: domain.SourceEstimate}
	}
	return domain.Enrichment{ZIP: "76102", Population: 3000, Source: domain.SourceCensus}
}

var (
	fortWorthZIP = domain.ZipLocation{ZIP: "76102", Lat: 32.7541, Lon: -97.3295, City: "Fort Worth", State: "TX"}
	newYorkZIP   = domain.ZipLocation{ZIP: "10001", Lat: 40.7484, Lon: -73.9967, City: "New York", State: "NY"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	ctl      *hailmap.Controller
	feed     *fakeFeed
	zips     *fakeZips
	enricher *fakeEnricher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	loc := time.FixedZone("CDT", -5*60*60)
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.May, 10, 15, 0, 0, 0, loc))
	h := &harness{
		feed:     newFakeFeed(),
		zips:     &fakeZips{locations: map[string]domain.ZipLocation{"76102": fortWorthZIP, "10001": newYorkZIP}},
		enricher: &fakeEnricher{},
	}
	h.ctl = hailmap.New(h.feed, h.zips, h.enricher, discardLogger(), observability.NewMetricsForTesting(),
		hailmap.WithClock(clock), hailmap.WithLocation(loc))
	return h
}

func feedEvents(n int, lat, lon float64) []domain.HailEvent {
	events := make([]domain.HailEvent, n)
	for i := range events {
		events[i] = domain.HailEvent{ID: i + 1, Time: "1510", Size: 1.0, Location: "Somewhere", State: "TX", Lat: lat, Lon: lon}
	}
	return events
}

// --- tests ---

func TestNew_StartsWithSampleData(t *testing.T) {
	h := newHarness(t)
	v := h.ctl.View()

	assert.Equal(t, domain.RangeSample, v.DateRange)
	assert.Len(t, v.Events, 5)
	assert.Equal(t, 5, v.TotalEvents)
	assert.Equal(t, domain.DefaultCenter, v.MapCenter)
	assert.False(t, v.Loading)
	assert.False(t, v.Filtered())
	assert.Empty(t, v.Message)
	assert.Empty(t, h.feed.calls)
}

func TestSetDateRange_Today(t *testing.T) {
	h := newHarness(t)
	h.feed.set("240510", feedResult{events: feedEvents(3, 35.0, -98.0)})

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeToday, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"240510"}, h.feed.calls)
	assert.Equal(t, domain.RangeToday, v.DateRange)
	assert.Len(t, v.Events, 3)
	assert.False(t, v.Loading)
	assert.Empty(t, v.Message)
}

func TestSetDateRange_Yesterday(t *testing.T) {
	h := newHarness(t)
	h.feed.set("240509", feedResult{events: feedEvents(2, 35.0, -98.0)})

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeYesterday, "")
	require.NoError(t, err)
	assert.Len(t, v.Events, 2)
}

func TestSetDateRange_CustomMissingDateFallsBack(t *testing.T) {
	h := newHarness(t)

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeCustom, "")
	require.ErrorIs(t, err, domain.ErrDateRequired)
	assert.Equal(t, "Please select a date", v.Message)
	assert.Equal(t, domain.RangeCustom, v.DateRange)
	assert.Len(t, v.Events, 5)
	assert.Empty(t, h.feed.calls)
}

func TestSetDateRange_CustomOutOfRange(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctl.SetDateRange(context.Background(), domain.RangeCustom, "2011-12-31")
	require.ErrorIs(t, err, domain.ErrDateOutOfRange)

	_, err = h.ctl.SetDateRange(context.Background(), domain.RangeCustom, "2024-05-11")
	require.ErrorIs(t, err, domain.ErrDateOutOfRange)
	assert.Empty(t, h.feed.calls)
}

func TestSetDateRange_FetchFailureFallsBackToSample(t *testing.T) {
	h := newHarness(t)

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeCustom, "2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"240401"}, h.feed.calls)
	assert.Equal(t, "No hail reports found for 2024-04-01 - Showing sample data instead", v.Message)
	assert.Len(t, v.Events, 5)
	assert.Equal(t, domain.RangeCustom, v.DateRange)
	assert.False(t, v.Loading)
}

func TestSetDateRange_EmptyFeedFallsBackToSample(t *testing.T) {
	h := newHarness(t)
	h.feed.set("240510", feedResult{err: domain.ErrEmptyFeed})

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeToday, "")
	require.NoError(t, err)
	assert.Equal(t, "No hail reports for this date - Showing sample data instead", v.Message)
	assert.Len(t, v.Events, 5)
}

func TestSetDateRange_FallbackClearsZIPFilter(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctl.SearchZIP(context.Background(), "76102")
	require.NoError(t, err)

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeToday, "")
	require.NoError(t, err)
	assert.False(t, v.Filtered())
	assert.Empty(t, v.ZIP)
	assert.Equal(t, domain.DefaultCenter, v.MapCenter)
}

func TestSetDateRange_ReappliesZIPFilter(t *testing.T) {
	h := newHarness(t)
	near := feedEvents(2, 32.76, -97.33)
	far := domain.HailEvent{ID: 3, Size: 2, Location: "Amarillo", State: "TX", Lat: 35.22, Lon: -101.83}
	h.feed.set("240510", feedResult{events: append(near, far)})

	_, err := h.ctl.SearchZIP(context.Background(), "76102")
	require.NoError(t, err)

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeToday, "")
	require.NoError(t, err)
	assert.True(t, v.Filtered())
	assert.Equal(t, "76102", v.ZIP)
	assert.Len(t, v.Events, 2)
	assert.Equal(t, 3, v.TotalEvents)
}

func TestSetDateRange_LatestRequestWins(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.feed.set("240510", feedResult{events: feedEvents(7, 35, -98), gate: gate})
	h.feed.set("240509", feedResult{events: feedEvents(2, 35, -98)})

	type result struct {
		v   hailmap.View
		err error
	}
	slow := make(chan result, 1)
	go func() {
		v, err := h.ctl.SetDateRange(context.Background(), domain.RangeToday, "")
		slow <- result{v, err}
	}()
	require.Equal(t, "240510", <-h.feed.started)
	assert.True(t, h.ctl.View().Loading)

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeYesterday, "")
	<-h.feed.started
	require.NoError(t, err)
	assert.Len(t, v.Events, 2)

	close(gate)
	r := <-slow
	require.ErrorIs(t, r.err, hailmap.ErrSuperseded)
	assert.Len(t, r.v.Events, 2)
	assert.Equal(t, domain.RangeYesterday, h.ctl.View().DateRange)
	assert.Len(t, h.ctl.View().Events, 2)
}

func TestSearchZIP_FiltersWithinFiftyMiles(t *testing.T) {
	h := newHarness(t)

	v, err := h.ctl.SearchZIP(context.Background(), "76102")
	require.NoError(t, err)
	assert.True(t, v.Filtered())
	assert.Equal(t, fortWorthZIP.Coordinates(), v.MapCenter)
	assert.Len(t, v.Events, 5)
	for _, e := range v.Events {
		assert.LessOrEqual(t, domain.Distance(fortWorthZIP.Coordinates(), e.Coordinates()), domain.ZIPRadiusMiles)
	}
}

func TestSearchZIP_NoEventsNearby(t *testing.T) {
	h := newHarness(t)

	v, err := h.ctl.SearchZIP(context.Background(), "10001")
	require.NoError(t, err)
	assert.True(t, v.Filtered())
	assert.Empty(t, v.Events)
	assert.Contains(t, v.Message, "No hail events found within 50 miles of ZIP 10001")
}

func TestSearchZIP_InvalidLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)

	for _, zip := range []string{"", "1234", "123456", "abcde"} {
		v, err := h.ctl.SearchZIP(context.Background(), zip)
		require.ErrorIs(t, err, domain.ErrInvalidZIP, zip)
		assert.False(t, v.Filtered())
		assert.Len(t, v.Events, 5)
	}
}

func TestSearchZIP_UnknownZIP(t *testing.T) {
	h := newHarness(t)

	v, err := h.ctl.SearchZIP(context.Background(), "99999")
	require.ErrorIs(t, err, domain.ErrZIPNotFound)
	assert.False(t, v.Filtered())
	assert.Len(t, v.Events, 5)
}

func TestSearchZIP_ClearFilterSupersedesInFlightSearch(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.zips.gate = map[string]chan struct{}{"76102": gate}
	h.zips.started = make(chan string, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctl.SearchZIP(context.Background(), "76102")
		done <- err
	}()
	<-h.zips.started

	v := h.ctl.ClearFilter()
	assert.False(t, v.Filtered())

	close(gate)
	require.ErrorIs(t, <-done, hailmap.ErrSuperseded)
	assert.False(t, h.ctl.View().Filtered())
}

func TestClearFilter(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctl.SearchZIP(context.Background(), "10001")
	require.NoError(t, err)

	v := h.ctl.ClearFilter()
	assert.False(t, v.Filtered())
	assert.Empty(t, v.ZIP)
	assert.Empty(t, v.Message)
	assert.Equal(t, domain.DefaultCenter, v.MapCenter)
	assert.Len(t, v.Events, 5)
}

func TestSelect_ResolvesOnce(t *testing.T) {
	h := newHarness(t)

	before, err := h.ctl.Detail(1)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusUnresolved, before.Status)
	assert.False(t, before.Loading)
	assert.Nil(t, before.Event.ZipCode)

	d, err := h.ctl.Select(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusResolved, d.Status)
	assert.False(t, d.Loading)
	assert.True(t, d.Selected)
	require.NotNil(t, d.Event.ZipCode)
	assert.Equal(t, "76102", *d.Event.ZipCode)
	assert.Equal(t, 3000, *d.Event.EstimatedPopulation)
	assert.Equal(t, "census", d.Source)

	_, err = h.ctl.Select(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.enricher.calls.Load())

	v := h.ctl.View()
	assert.Equal(t, 1, v.SelectedID)
	require.NotNil(t, v.Events[0].ZipCode)
	assert.Nil(t, v.Events[1].ZipCode)
}

func TestDetail_LoadingOnlyWhileResolving(t *testing.T) {
	h := newHarness(t)
	h.enricher.gate = make(chan struct{})
	h.enricher.started = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := h.ctl.Select(context.Background(), 2)
		assert.NoError(t, err)
	}()
	<-h.enricher.started

	tests := []struct {
		name    string
		id      int
		status  hailmap.EnrichmentStatus
		loading bool
	}{
		{name: "never selected", id: 3, status: hailmap.StatusUnresolved, loading: false},
		{name: "lookup in flight", id: 2, status: hailmap.StatusResolving, loading: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := h.ctl.Detail(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.loading, d.Loading)
		})
	}

	close(h.enricher.gate)
	<-done

	d, err := h.ctl.Detail(2)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusResolved, d.Status)
	assert.False(t, d.Loading)
}

func TestSelect_ConcurrentSelectionsShareLookup(t *testing.T) {
	h := newHarness(t)
	h.enricher.gate = make(chan struct{})
	h.enricher.started = make(chan struct{}, 1)

	var wg sync.WaitGroup
	results := make([]hailmap.Detail, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := h.ctl.Select(context.Background(), 5)
			assert.NoError(t, err)
			results[i] = d
		}()
	}
	<-h.enricher.started

	d, err := h.ctl.Detail(5)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusResolving, d.Status)
	assert.True(t, d.Loading)

	close(h.enricher.gate)
	wg.Wait()

	assert.Equal(t, int32(1), h.enricher.calls.Load())
	for _, r := range results {
		require.NotNil(t, r.Event.ZipCode)
		assert.Equal(t, "75074", *r.Event.ZipCode)
	}
}

func TestSelect_WaiterHonorsContext(t *testing.T) {
	h := newHarness(t)
	h.enricher.gate = make(chan struct{})
	h.enricher.started = make(chan struct{}, 1)

	first := make(chan error, 1)
	go func() {
		_, err := h.ctl.Select(context.Background(), 2)
		first <- err
	}()
	<-h.enricher.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := h.ctl.Select(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusResolving, d.Status)

	close(h.enricher.gate)
	require.NoError(t, <-first)
}

func TestSelect_ReloadDiscardsEnrichment(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctl.Select(context.Background(), 1)
	require.NoError(t, err)

	v, err := h.ctl.SetDateRange(context.Background(), domain.RangeSample, "")
	require.NoError(t, err)
	assert.Zero(t, v.SelectedID)

	d, err := h.ctl.Detail(1)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusUnresolved, d.Status)
	assert.Nil(t, d.Event.ZipCode)
}

func TestSelect_ReloadDuringLookupSupersedes(t *testing.T) {
	h := newHarness(t)
	h.enricher.gate = make(chan struct{})
	h.enricher.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctl.Select(context.Background(), 3)
		done <- err
	}()
	<-h.enricher.started

	_, err := h.ctl.SetDateRange(context.Background(), domain.RangeSample, "")
	require.NoError(t, err)

	close(h.enricher.gate)
	require.ErrorIs(t, <-done, hailmap.ErrSuperseded)

	d, err := h.ctl.Detail(3)
	require.NoError(t, err)
	assert.Equal(t, hailmap.StatusUnresolved, d.Status)
}

func TestSelect_UnknownEvent(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctl.Select(context.Background(), 42)
	require.ErrorIs(t, err, hailmap.ErrUnknownEvent)
	_, err = h.ctl.Detail(0)
	require.ErrorIs(t, err, hailmap.ErrUnknownEvent)
}
