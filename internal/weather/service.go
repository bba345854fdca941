package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedLocation is returned when NWS has no grid for a coordinate.
var ErrUnsupportedLocation = errors.New("location not supported by NWS")

// DefaultLocation is the label shown for the default coordinates.
const DefaultLocation = "Fort Worth, TX"

// Service builds Conditions from an NWS provider.
type Service struct {
	provider Provider
	zips     domain.ZipResolver
	logger   *slog.Logger
}

// NewService creates a weather service. zips may be nil when ZIP lookups are
// not needed.
func NewService(provider Provider, zips domain.ZipResolver, logger *slog.Logger) *Service {
	return &Service{provider: provider, zips: zips, logger: logger}
}

// ForZIP resolves a ZIP to its centroid and returns the conditions there,
// labeled "City, ST".
func (s *Service) ForZIP(ctx context.Context, zip string) (Conditions, error) {
	if err := domain.ValidateZIP(zip); err != nil {
		return Conditions{}, err
	}
	if s.zips == nil {
		return Conditions{}, fmt.Errorf("%w: no resolver configured", domain.ErrZIPNotFound)
	}
	loc, err := s.zips.ResolveZIP(ctx, zip)
	if err != nil {
		return Conditions{}, err
	}
	return s.ForCoordinates(ctx, loc.Lat, loc.Lon, loc.City+", "+loc.State)
}

// ForCoordinates returns the conditions at a coordinate. An empty label uses
// the NWS relative location. Alerts are fetched alongside the point chain, and
// the observation alongside the forecast; observation and alert failures
// degrade to forecast values and no alerts respectively.
func (s *Service) ForCoordinates(ctx context.Context, lat, lon float64, label string) (Conditions, error) {
	var (
		alerts  []Alert
		point   Point
		obs     Observation
		periods []Period
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.provider.ActiveAlerts(gctx, lat, lon)
		if err != nil {
			s.logger.Warn("nws alerts unavailable", "lat", lat, "lon", lon, "error", err)
			return nil
		}
		alerts = a
		return nil
	})
	g.Go(func() error {
		var err error
		point, err = s.provider.Point(gctx, lat, lon)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnsupportedLocation, err)
		}

		inner, ictx := errgroup.WithContext(gctx)
		inner.Go(func() error {
			o, err := s.provider.LatestObservation(ictx, point.StationsURL)
			if err != nil {
				s.logger.Warn("nws observation unavailable", "stations", point.StationsURL, "error", err)
				return nil
			}
			obs = o
			return nil
		})
		inner.Go(func() error {
			p, err := s.provider.Forecast(ictx, point.ForecastURL)
			if err != nil {
				return fmt.Errorf("nws forecast: %w", err)
			}
			if len(p) == 0 {
				return errors.New("nws forecast: no periods")
			}
			periods = p
			return nil
		})
		return inner.Wait()
	})
	if err := g.Wait(); err != nil {
		return Conditions{}, err
	}

	current := periods[0]
	for _, p := range periods {
		if p.IsDaytime {
			current = p
			break
		}
	}

	c := Conditions{
		Location:     label,
		Lat:          lat,
		Lon:          lon,
		TemperatureF: current.Temperature,
		Condition:    current.ShortForecast,
		Forecast:     CollapseForecast(periods),
		Alerts:       alerts,
	}
	if obs.TemperatureC != nil {
		c.TemperatureF = CelsiusToFahrenheit(*obs.TemperatureC)
	}
	if obs.Description != "" {
		c.Condition = obs.Description
	}
	c.Icon = IconFor(c.Condition)
	if c.Location == "" {
		c.Location = point.City + ", " + point.State
	}
	if c.Alerts == nil {
		c.Alerts = []Alert{}
	}
	return c, nil
}
