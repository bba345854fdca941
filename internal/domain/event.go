package domain

// Coordinates is a WGS-84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DefaultCenter is Fort Worth, TX: the fallback location for unparseable feed
// coordinates and the default map focus.
var DefaultCenter = Coordinates{Lat: 32.7555, Lon: -97.3308}

// HailEvent is a single storm report from the SPC hail feed.
type HailEvent struct {
	ID       int     `json:"id"`
	Time     string  `json:"time"` // as reported, e.g. "1510" or "14:30 CST"
	Size     float64 `json:"size"` // inches
	Location string  `json:"location"`
	County   string  `json:"county"`
	State    string  `json:"state"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Comments string  `json:"comments"`

	// Enrichment fields. They are only populated on copies handed out by the
	// map controller; loaded events are never mutated in place.
	ZipCode             *string `json:"zipCode"`
	EstimatedPopulation *int    `json:"estimatedPopulation,omitempty"`
}

// Coordinates returns the event position.
func (e HailEvent) Coordinates() Coordinates {
	return Coordinates{Lat: e.Lat, Lon: e.Lon}
}

// WithEnrichment returns a copy of the event carrying the enrichment values.
func (e HailEvent) WithEnrichment(en Enrichment) HailEvent {
	zip := en.ZIP
	pop := en.Population
	e.ZipCode = &zip
	e.EstimatedPopulation = &pop
	return e
}

// ZipLocation is the centroid of a US ZIP code.
type ZipLocation struct {
	ZIP   string  `json:"zip"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	City  string  `json:"city"`
	State string  `json:"state"`
}

// Coordinates returns the ZIP centroid.
func (z ZipLocation) Coordinates() Coordinates {
	return Coordinates{Lat: z.Lat, Lon: z.Lon}
}

// PlaceType classifies the settlement around a coordinate for population fallbacks.
type PlaceType string

const (
	PlaceCity    PlaceType = "city"
	PlaceTown    PlaceType = "town"
	PlaceVillage PlaceType = "village"
	PlaceHamlet  PlaceType = "hamlet"
	PlaceOther   PlaceType = "other"
)

// Place is the result of reverse geocoding a coordinate.
type Place struct {
	PostalCode string    `json:"postal_code,omitempty"`
	PlaceType  PlaceType `json:"place_type,omitempty"`
	Name       string    `json:"name,omitempty"`
}

// EnrichmentSource records how an enrichment value was obtained.
type EnrichmentSource string

const (
	SourceCensus   EnrichmentSource = "census"   // 30% of the ZCTA population
	SourceEstimate EnrichmentSource = "estimate" // tiered random range by place type
	SourceSentinel EnrichmentSource = "sentinel" // reverse geocoding failed outright
	SourceRelay    EnrichmentSource = "relay"    // answered by a relay that did not say how
)

// ParseEnrichmentSource maps a wire value to a known source. Unknown or empty
// values report false.
func ParseEnrichmentSource(s string) (EnrichmentSource, bool) {
	switch src := EnrichmentSource(s); src {
	case SourceCensus, SourceEstimate, SourceSentinel, SourceRelay:
		return src, true
	}
	return "", false
}

// Enrichment is the lazily resolved ZIP code and affected population of an event.
type Enrichment struct {
	ZIP        string           `json:"zip"`
	Population int              `json:"population"`
	Source     EnrichmentSource `json:"source,omitempty"`
}

// Sentinel enrichment values used when the lookup chain cannot run at all.
const (
	UnknownZIP         = "Unknown"
	SentinelPopulation = 7383
)

// SentinelEnrichment is returned when reverse geocoding throws.
func SentinelEnrichment() Enrichment {
	return Enrichment{ZIP: UnknownZIP, Population: SentinelPopulation, Source: SourceSentinel}
}
