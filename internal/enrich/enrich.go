// Package enrich assembles the census enricher shared by the site API, the
// relay and hailctl.
package enrich

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/census"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-spectrum/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-spectrum/internal/cache"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// Config selects and configures the lookups behind the enricher.
type Config struct {
	MapboxEnabled bool
	MapboxToken   string

	NominatimBaseURL   string
	NominatimUserAgent string

	CensusBaseURL string
	CensusAPIKey  string

	Timeout time.Duration

	// CacheSize bounds each lookup cache. Zero or less disables caching.
	CacheSize int
}

// New resolves events with Mapbox when enabled, else Nominatim, and reads
// populations from the Census API.
func New(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *domain.CensusEnricher {
	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.Timeout, metrics, logger)
		logger.Info("mapbox reverse geocoding enabled", "cache_size", cfg.CacheSize)
	} else {
		geocoder = nominatim.NewClient(cfg.NominatimBaseURL, cfg.NominatimUserAgent, cfg.Timeout, metrics)
		logger.Info("nominatim reverse geocoding enabled", "cache_size", cfg.CacheSize)
	}
	if metrics != nil {
		metrics.MapboxEnabled.Set(gauge(cfg.MapboxEnabled))
	}

	var population domain.PopulationSource = census.NewClient(cfg.CensusBaseURL, cfg.CensusAPIKey, cfg.Timeout, metrics)
	if cfg.CacheSize > 0 {
		geocoder = cache.NewCachedGeocoder(geocoder, cfg.CacheSize, metrics)
		population = cache.NewCachedPopulation(population, cfg.CacheSize, metrics)
	}
	return domain.NewCensusEnricher(geocoder, population, nil, logger)
}

func gauge(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
