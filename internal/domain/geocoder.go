package domain

import "context"

// ReverseGeocoder resolves a coordinate to a postal code and place classification.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}

// PopulationSource returns the total population of a ZIP Code Tabulation Area.
type PopulationSource interface {
	ZCTAPopulation(ctx context.Context, zip string) (int, error)
}

// ZipResolver resolves a 5-digit ZIP code to its centroid.
type ZipResolver interface {
	ResolveZIP(ctx context.Context, zip string) (ZipLocation, error)
}

// Enricher resolves the ZIP code and affected population around a coordinate.
// Implementations never fail; they degrade to fallback values instead.
type Enricher interface {
	Enrich(ctx context.Context, lat, lon float64) Enrichment
}
