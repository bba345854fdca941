// Package webcams lists live and custom webcams near a location.
package webcams

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
)

// DefaultMaxDistance is the search radius in miles when none is given.
const DefaultMaxDistance = 100.0

// Webcam sources.
const (
	SourceWindy  = "Windy"
	SourceCustom = "Custom"
)

//go:embed webcams.json
var embeddedCustom []byte

// Webcam is a camera near the requested location.
type Webcam struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Image     string  `json:"image,omitempty"`
	URL       string  `json:"url,omitempty"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"`
	Source    string  `json:"source"`
	Distance  float64 `json:"distance"`
}

// Source finds live webcams within radiusMiles of a coordinate.
type Source interface {
	Nearby(ctx context.Context, lat, lon, radiusMiles float64) ([]Webcam, error)
}

// Service merges a live webcam source with a fixed custom list.
type Service struct {
	live   Source
	custom []Webcam
	logger *slog.Logger
}

// NewService creates a webcam service. live may be nil to serve only the
// custom list.
func NewService(live Source, custom []Webcam, logger *slog.Logger) *Service {
	return &Service{live: live, custom: custom, logger: logger}
}

// LoadCustom decodes a custom webcam list of the form {"custom": [...]}.
func LoadCustom(r io.Reader) ([]Webcam, error) {
	var doc struct {
		Custom []Webcam `json:"custom"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode custom webcams: %w", err)
	}
	for i := range doc.Custom {
		doc.Custom[i].Source = SourceCustom
	}
	return doc.Custom, nil
}

// DefaultCustom returns the custom webcams bundled with the binary.
func DefaultCustom() []Webcam {
	cams, err := LoadCustom(bytes.NewReader(embeddedCustom))
	if err != nil {
		panic(err)
	}
	return cams
}

// Near returns webcams within maxDistance miles sorted by distance. Live
// source failures are logged and ignored. limit <= 0 returns all.
func (s *Service) Near(ctx context.Context, lat, lon, maxDistance float64, limit int) []Webcam {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	center := domain.Coordinates{Lat: lat, Lon: lon}

	var cams []Webcam
	if s.live != nil {
		live, err := s.live.Nearby(ctx, lat, lon, maxDistance)
		if err != nil {
			s.logger.Warn("live webcams unavailable", "error", err)
		}
		for _, c := range live {
			c.Source = SourceWindy
			c.Distance = domain.Distance(center, domain.Coordinates{Lat: c.Latitude, Lon: c.Longitude})
			cams = append(cams, c)
		}
	}

	for _, c := range s.custom {
		c.Distance = domain.Distance(center, domain.Coordinates{Lat: c.Latitude, Lon: c.Longitude})
		if c.Distance <= maxDistance {
			cams = append(cams, c)
		}
	}

	sort.SliceStable(cams, func(i, j int) bool { return cams[i].Distance < cams[j].Distance })
	if limit > 0 && len(cams) > limit {
		cams = cams[:limit]
	}
	if cams == nil {
		cams = []Webcam{}
	}
	return cams
}
