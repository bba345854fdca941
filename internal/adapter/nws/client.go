// Package nws implements weather.Provider against api.weather.gov.
package nws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/couchcryptid/weather-spectrum/internal/weather"
)

// DefaultBaseURL is the public NWS API.
const DefaultBaseURL = "https://api.weather.gov"

// ErrNoStations is returned when a grid point lists no observation stations.
var ErrNoStations = errors.New("no observation stations")

// Client implements weather.Provider.
type Client struct {
	rest    *rest.Client
	baseURL string
}

// NewClient creates an NWS client. NWS rejects requests without a User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := rest.New("nws", timeout, metrics)
	rc.UserAgent = userAgent
	rc.Accept = "application/geo+json"
	return &Client{rest: rc, baseURL: strings.TrimRight(baseURL, "/")}
}

// Point returns the forecast and station URLs for a coordinate.
func (c *Client) Point(ctx context.Context, lat, lon float64) (weather.Point, error) {
	var resp pointResponse
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if err := c.rest.GetJSON(ctx, u, &resp); err != nil {
		return weather.Point{}, err
	}
	p := resp.Properties
	return weather.Point{
		ForecastURL: p.Forecast,
		StationsURL: p.ObservationStations,
		City:        p.RelativeLocation.Properties.City,
		State:       p.RelativeLocation.Properties.State,
	}, nil
}

// LatestObservation reads the latest observation of the first (closest) station.
func (c *Client) LatestObservation(ctx context.Context, stationsURL string) (weather.Observation, error) {
	var stations featureCollection
	if err := c.rest.GetJSON(ctx, stationsURL, &stations); err != nil {
		return weather.Observation{}, fmt.Errorf("list stations: %w", err)
	}
	if len(stations.Features) == 0 {
		return weather.Observation{}, ErrNoStations
	}

	var obs observationResponse
	u := strings.TrimRight(stations.Features[0].ID, "/") + "/observations/latest"
	if err := c.rest.GetJSON(ctx, u, &obs); err != nil {
		return weather.Observation{}, fmt.Errorf("latest observation: %w", err)
	}
	return weather.Observation{
		TemperatureC: obs.Properties.Temperature.Value,
		Description:  obs.Properties.TextDescription,
	}, nil
}

// Forecast returns the named forecast periods.
func (c *Client) Forecast(ctx context.Context, forecastURL string) ([]weather.Period, error) {
	var resp forecastResponse
	if err := c.rest.GetJSON(ctx, forecastURL, &resp); err != nil {
		return nil, err
	}
	return resp.Properties.Periods, nil
}

// ActiveAlerts returns the alerts in effect at a coordinate.
func (c *Client) ActiveAlerts(ctx context.Context, lat, lon float64) ([]weather.Alert, error) {
	var resp alertsResponse
	u := c.baseURL + "/alerts/active?" + url.Values{"point": {fmt.Sprintf("%.4f,%.4f", lat, lon)}}.Encode()
	if err := c.rest.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	alerts := make([]weather.Alert, 0, len(resp.Features))
	for _, f := range resp.Features {
		a := f.Properties
		a.ID = f.ID
		a.Color = weather.AlertColorFor(a.Severity, a.Urgency)
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// NWS API response types.

type pointResponse struct {
	Properties struct {
		Forecast            string `json:"forecast"`
		ObservationStations string `json:"observationStations"`
		RelativeLocation    struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type featureCollection struct {
	Features []struct {
		ID string `json:"id"`
	} `json:"features"`
}

type observationResponse struct {
	Properties struct {
		Temperature struct {
			Value *float64 `json:"value"`
		} `json:"temperature"`
		TextDescription string `json:"textDescription"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []weather.Period `json:"periods"`
	} `json:"properties"`
}

type alertsResponse struct {
	Features []struct {
		ID         string        `json:"id"`
		Properties weather.Alert `json:"properties"`
	} `json:"features"`
}
