package domain

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
)

// AffectedShare is the fraction of a ZCTA population assumed to be affected
// by a hail report inside it.
const AffectedShare = 0.3

// populationRange is an inclusive [Min, Max] range for fallback estimates.
type populationRange struct {
	Min, Max int
}

var fallbackRanges = map[PlaceType]populationRange{
	PlaceCity:    {10000, 15000},
	PlaceTown:    {10000, 15000},
	PlaceVillage: {2000, 5000},
	PlaceHamlet:  {2000, 5000},
	PlaceOther:   {500, 2000},
}

// FallbackRange returns the inclusive population range used when census data
// is unavailable for a place type.
func FallbackRange(t PlaceType) (lo, hi int) {
	r, ok := fallbackRanges[t]
	if !ok {
		r = fallbackRanges[PlaceOther]
	}
	return r.Min, r.Max
}

// CensusEnricher implements Enricher with a reverse geocoder and a ZCTA
// population source.
type CensusEnricher struct {
	geocoder   ReverseGeocoder
	population PopulationSource
	logger     *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCensusEnricher creates an enricher. A nil rng uses a randomly seeded source.
func NewCensusEnricher(geocoder ReverseGeocoder, population PopulationSource, rng *rand.Rand, logger *slog.Logger) *CensusEnricher {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CensusEnricher{
		geocoder:   geocoder,
		population: population,
		logger:     logger,
		rng:        rng,
	}
}

// Enrich resolves the ZIP and affected population for a coordinate. A reverse
// geocoding failure yields SentinelEnrichment; any later failure falls back to
// a tiered estimate keyed by place type.
func (c *CensusEnricher) Enrich(ctx context.Context, lat, lon float64) Enrichment {
	place, err := c.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		c.logger.Warn("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return SentinelEnrichment()
	}

	zip := NormalizePostalCode(place.PostalCode)
	if zip != "" && c.population != nil {
		pop, err := c.population.ZCTAPopulation(ctx, zip)
		switch {
		case err != nil:
			c.logger.Debug("census lookup failed", "zip", zip, "error", err)
		case pop > 0:
			return Enrichment{
				ZIP:        zip,
				Population: int(math.Round(float64(pop) * AffectedShare)),
				Source:     SourceCensus,
			}
		}
	}

	if zip == "" {
		zip = UnknownZIP
	}
	return Enrichment{ZIP: zip, Population: c.estimate(place.PlaceType), Source: SourceEstimate}
}

func (c *CensusEnricher) estimate(t PlaceType) int {
	lo, hi := FallbackRange(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo + c.rng.IntN(hi-lo+1)
}
