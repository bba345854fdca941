// Package zippopotam resolves US ZIP codes to centroids via api.zippopotam.us.
package zippopotam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// DefaultBaseURL is the US endpoint of the Zippopotam API.
const DefaultBaseURL = "https://api.zippopotam.us/us"

// Client implements domain.ZipResolver.
type Client struct {
	rest    *rest.Client
	baseURL string
}

// NewClient creates a ZIP resolver.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		rest:    rest.New("zippopotam", timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ResolveZIP returns the centroid of the first place listed for zip. Every
// failure is wrapped in domain.ErrZIPNotFound.
func (c *Client) ResolveZIP(ctx context.Context, zip string) (domain.ZipLocation, error) {
	var resp response
	if err := c.rest.GetJSON(ctx, c.baseURL+"/"+url.PathEscape(zip), &resp); err != nil {
		return domain.ZipLocation{}, fmt.Errorf("%w: %s: %w", domain.ErrZIPNotFound, zip, err)
	}
	if len(resp.Places) == 0 {
		return domain.ZipLocation{}, fmt.Errorf("%w: %s: no places", domain.ErrZIPNotFound, zip)
	}

	p := resp.Places[0]
	lat, errLat := strconv.ParseFloat(p.Latitude, 64)
	lon, errLon := strconv.ParseFloat(p.Longitude, 64)
	if errLat != nil || errLon != nil {
		return domain.ZipLocation{}, fmt.Errorf("%w: %s: bad coordinates %q,%q", domain.ErrZIPNotFound, zip, p.Latitude, p.Longitude)
	}

	return domain.ZipLocation{
		ZIP:   zip,
		Lat:   lat,
		Lon:   lon,
		City:  p.PlaceName,
		State: p.StateAbbreviation,
	}, nil
}

// Zippopotam API response types.

type response struct {
	PostCode string  `json:"post code"`
	Places   []place `json:"places"`
}

type place struct {
	PlaceName         string `json:"place name"`
	Latitude          string `json:"latitude"`
	Longitude         string `json:"longitude"`
	StateAbbreviation string `json:"state abbreviation"`
}
