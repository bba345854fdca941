// Package windy lists nearby webcams from the Windy webcams API.
package windy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/couchcryptid/weather-spectrum/internal/webcams"
)

// DefaultBaseURL is the Windy webcams v2 list endpoint.
const DefaultBaseURL = "https://api.windy.com/api/webcams/v2/list"

// ErrNoAPIKey is returned when the client has no key configured.
var ErrNoAPIKey = errors.New("windy API key not configured")

// Client implements webcams.Source.
type Client struct {
	rest    *rest.Client
	baseURL string
	apiKey  string
}

// NewClient creates a Windy client.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		rest:    rest.New("windy", timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Nearby returns live webcams within radiusMiles of a coordinate.
func (c *Client) Nearby(ctx context.Context, lat, lon, radiusMiles float64) ([]webcams.Webcam, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	params := url.Values{
		"show": {"webcams:image,location"},
		"key":  {c.apiKey},
	}
	u := fmt.Sprintf("%s/nearby=%g,%g,%g?%s", c.baseURL, lat, lon, radiusMiles, params.Encode())

	var resp response
	if err := c.rest.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("windy nearby: %w", err)
	}

	cams := make([]webcams.Webcam, 0, len(resp.Result.Webcams))
	for _, w := range resp.Result.Webcams {
		cams = append(cams, webcams.Webcam{
			ID:        "windy-" + w.ID,
			Title:     w.Title,
			Image:     w.Image.Current.Preview,
			City:      w.Location.City,
			State:     w.Location.Region,
			Latitude:  w.Location.Latitude,
			Longitude: w.Location.Longitude,
			Type:      "live",
		})
	}
	return cams, nil
}

// Windy API response types.

type response struct {
	Result struct {
		Webcams []webcam `json:"webcams"`
	} `json:"result"`
}

type webcam struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image struct {
		Current struct {
			Preview string `json:"preview"`
		} `json:"current"`
	} `json:"image"`
	Location struct {
		City      string  `json:"city"`
		Region    string  `json:"region"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}
