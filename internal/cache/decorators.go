package cache

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// CachedGeocoder wraps a ReverseGeocoder with an LRU keyed by rounded coordinates.
type CachedGeocoder struct {
	inner   domain.ReverseGeocoder
	cache   *LRU[string, domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a reverse geocoder.
func NewCachedGeocoder(inner domain.ReverseGeocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   NewLRU[string, domain.Place](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if place, ok := c.cache.Get(key); ok {
		c.metrics.ObserveCache("reverse", true)
		return place, nil
	}
	c.metrics.ObserveCache("reverse", false)

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Only cache results with a postcode so transient partial answers can be retried.
	if place.PostalCode != "" {
		c.cache.Put(key, place)
	}
	return place, nil
}

// CachedZipResolver wraps a ZipResolver. Only successful lookups are cached.
type CachedZipResolver struct {
	inner   domain.ZipResolver
	cache   *LRU[string, domain.ZipLocation]
	metrics *observability.Metrics
}

// NewCachedZipResolver creates a cache decorator around a ZIP resolver.
func NewCachedZipResolver(inner domain.ZipResolver, maxEntries int, metrics *observability.Metrics) *CachedZipResolver {
	return &CachedZipResolver{
		inner:   inner,
		cache:   NewLRU[string, domain.ZipLocation](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedZipResolver) ResolveZIP(ctx context.Context, zip string) (domain.ZipLocation, error) {
	if loc, ok := c.cache.Get(zip); ok {
		c.metrics.ObserveCache("zip", true)
		return loc, nil
	}
	c.metrics.ObserveCache("zip", false)

	loc, err := c.inner.ResolveZIP(ctx, zip)
	if err != nil {
		return loc, err
	}
	c.cache.Put(zip, loc)
	return loc, nil
}

// CachedPopulation wraps a PopulationSource. Only positive populations are cached.
type CachedPopulation struct {
	inner   domain.PopulationSource
	cache   *LRU[string, int]
	metrics *observability.Metrics
}

// NewCachedPopulation creates a cache decorator around a population source.
func NewCachedPopulation(inner domain.PopulationSource, maxEntries int, metrics *observability.Metrics) *CachedPopulation {
	return &CachedPopulation{
		inner:   inner,
		cache:   NewLRU[string, int](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedPopulation) ZCTAPopulation(ctx context.Context, zip string) (int, error) {
	if pop, ok := c.cache.Get(zip); ok {
		c.metrics.ObserveCache("population", true)
		return pop, nil
	}
	c.metrics.ObserveCache("population", false)

	pop, err := c.inner.ZCTAPopulation(ctx, zip)
	if err != nil {
		return pop, err
	}
	if pop > 0 {
		c.cache.Put(zip, pop)
	}
	return pop, nil
}
