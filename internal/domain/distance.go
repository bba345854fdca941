package domain

import "math"

const (
	// EarthRadiusMiles is the mean Earth radius used for great-circle distances.
	EarthRadiusMiles = 3959.0

	// ZIPRadiusMiles is the search radius around a ZIP centroid.
	ZIPRadiusMiles = 50.0
)

// DistanceMiles returns the great-circle distance between two coordinates in
// degrees using the Haversine formula. Non-finite input yields NaN.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// Distance returns the great-circle distance between two coordinates in miles.
func Distance(a, b Coordinates) float64 {
	return DistanceMiles(a.Lat, a.Lon, b.Lat, b.Lon)
}

// WithinRadius reports whether p lies within radiusMiles of center, inclusive.
// A NaN distance is never within the radius.
func WithinRadius(center, p Coordinates, radiusMiles float64) bool {
	d := Distance(center, p)
	return !math.IsNaN(d) && d <= radiusMiles
}

// FilterWithinRadius returns the events within radiusMiles of center, in input order.
func FilterWithinRadius(events []HailEvent, center Coordinates, radiusMiles float64) []HailEvent {
	out := make([]HailEvent, 0, len(events))
	for _, e := range events {
		if WithinRadius(center, e.Coordinates(), radiusMiles) {
			out = append(out, e)
		}
	}
	return out
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
