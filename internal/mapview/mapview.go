// Package mapview turns a hail map snapshot into a renderer-neutral
// description: markers colored by hail size, the camera, and the bounds to
// fit once events change.
package mapview

import (
	"fmt"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/hailmap"
)

const (
	ZoomFiltered = 10
	ZoomDefault  = 6

	FitMaxZoom = 10
	FitPadding = 50 // pixels on every side

	MarkerSize = 24 // pixels

	TileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	Attribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a>`

	metersPerMile = 1609.344
)

// Marker colors by hail size.
const (
	ColorRed    = "#ef4444"
	ColorOrange = "#f97316"
	ColorYellow = "#eab308"
	ColorGreen  = "#22c55e"
)

// Map is everything a client needs to draw the hail map.
type Map struct {
	Center      domain.Coordinates `json:"center"`
	Zoom        int                `json:"zoom"`
	TileURL     string             `json:"tileUrl"`
	Attribution string             `json:"attribution"`
	Markers     []Marker           `json:"markers"`
	Radius      *Circle            `json:"radius,omitempty"`
	Fit         *Fit               `json:"fit,omitempty"`
	Legend      []LegendEntry      `json:"legend"`
}

// Marker is one hail report on the map.
type Marker struct {
	ID       int                `json:"id"`
	Position domain.Coordinates `json:"position"`
	Color    string             `json:"color"`
	Size     int                `json:"size"`
	Label    string             `json:"label"`
	Popup    Popup              `json:"popup"`
	Selected bool               `json:"selected,omitempty"`
}

// Popup is the text shown when a marker is opened.
type Popup struct {
	Title string `json:"title"`
	Time  string `json:"time"`
	Size  string `json:"size"`
}

// Circle outlines the ZIP search radius.
type Circle struct {
	Center      domain.Coordinates `json:"center"`
	RadiusMiles float64            `json:"radiusMiles"`
	RadiusM     float64            `json:"radiusMeters"`
}

// Fit asks the renderer to fit the viewport to Bounds.
type Fit struct {
	SouthWest domain.Coordinates `json:"southWest"`
	NorthEast domain.Coordinates `json:"northEast"`
	MaxZoom   int                `json:"maxZoom"`
	Padding   int                `json:"padding"`
}

// LegendEntry explains one marker color.
type LegendEntry struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

var legend = []LegendEntry{
	{Color: ColorGreen, Label: `Pea/Penny (<1")`},
	{Color: ColorYellow, Label: `Quarter/Half Dollar (1-1.75")`},
	{Color: ColorOrange, Label: `Golf Ball (1.75-2")`},
	{Color: ColorRed, Label: `Baseball/Softball (2"+)`},
}

// Build describes the map for a controller snapshot.
func Build(v hailmap.View) Map {
	m := Map{
		Center:      v.MapCenter,
		Zoom:        ZoomDefault,
		TileURL:     TileURL,
		Attribution: Attribution,
		Markers:     make([]Marker, 0, len(v.Events)),
		Legend:      append([]LegendEntry(nil), legend...),
	}
	if v.ZIPFilter != nil {
		m.Zoom = ZoomFiltered
		m.Radius = &Circle{
			Center:      v.ZIPFilter.Coordinates(),
			RadiusMiles: domain.ZIPRadiusMiles,
			RadiusM:     domain.ZIPRadiusMiles * metersPerMile,
		}
	}

	for _, e := range v.Events {
		m.Markers = append(m.Markers, Marker{
			ID:       e.ID,
			Position: e.Coordinates(),
			Color:    SizeColor(e.Size),
			Size:     MarkerSize,
			Label:    SizeLabel(e.Size),
			Popup: Popup{
				Title: e.Location + ", " + e.State,
				Time:  e.Time,
				Size:  fmt.Sprintf(`%.2f" (%s)`, e.Size, SizeLabel(e.Size)),
			},
			Selected: e.ID == v.SelectedID,
		})
	}
	m.Fit = fitBounds(v.Events)
	return m
}

func fitBounds(events []domain.HailEvent) *Fit {
	if len(events) == 0 {
		return nil
	}
	f := &Fit{
		SouthWest: events[0].Coordinates(),
		NorthEast: events[0].Coordinates(),
		MaxZoom:   FitMaxZoom,
		Padding:   FitPadding,
	}
	for _, e := range events[1:] {
		f.SouthWest.Lat = min(f.SouthWest.Lat, e.Lat)
		f.SouthWest.Lon = min(f.SouthWest.Lon, e.Lon)
		f.NorthEast.Lat = max(f.NorthEast.Lat, e.Lat)
		f.NorthEast.Lon = max(f.NorthEast.Lon, e.Lon)
	}
	return f
}

// SizeColor returns the marker color for a hail diameter in inches.
func SizeColor(inches float64) string {
	switch {
	case inches >= 2:
		return ColorRed
	case inches >= 1.75:
		return ColorOrange
	case inches >= 1:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// SizeLabel names the common object of a similar diameter.
func SizeLabel(inches float64) string {
	switch {
	case inches >= 2.75:
		return "Softball"
	case inches >= 2:
		return "Baseball"
	case inches >= 1.75:
		return "Golf Ball"
	case inches >= 1.5:
		return "Ping Pong Ball"
	case inches >= 1.25:
		return "Half Dollar"
	case inches >= 1:
		return "Quarter"
	case inches >= 0.88:
		return "Nickel/Walnut"
	case inches >= 0.75:
		return "Penny"
	default:
		return "Pea"
	}
}
