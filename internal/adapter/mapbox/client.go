package mapbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// DefaultBaseURL is the Mapbox v5 places geocoding endpoint.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.ReverseGeocoder using the Mapbox Geocoding API.
type Client struct {
	token   string
	rest    *rest.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		rest:    rest.New("mapbox", timeout, metrics),
		baseURL: DefaultBaseURL,
		logger:  logger,
	}
}

// ReverseGeocode resolves coordinates to the enclosing postcode and the kind
// of settlement it belongs to.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"types":        {"postcode"},
		"limit":        {"1"},
	}

	var resp response
	if err := c.rest.GetJSON(ctx, u+"?"+params.Encode(), &resp); err != nil {
		return domain.Place{}, fmt.Errorf("reverse geocode: %w", err)
	}

	if len(resp.Features) == 0 {
		c.logger.Debug("mapbox returned no postcode", "lat", lat, "lon", lon)
		return domain.Place{PlaceType: domain.PlaceOther}, nil
	}
	return resp.Features[0].place(), nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Text      string        `json:"text"`
	PlaceName string        `json:"place_name"`
	Context   []contextItem `json:"context"`
}

type contextItem struct {
	ID   string `json:"id"` // e.g. "place.2618194975964500"
	Text string `json:"text"`
}

// place maps a postcode feature to a Place. A "place" context is treated as a
// city and a "locality" as a village; anything else is unclassified.
func (f feature) place() domain.Place {
	p := domain.Place{PostalCode: f.Text, PlaceType: domain.PlaceOther}
	for _, item := range f.Context {
		switch {
		case strings.HasPrefix(item.ID, "place."):
			return domain.Place{PostalCode: f.Text, PlaceType: domain.PlaceCity, Name: item.Text}
		case strings.HasPrefix(item.ID, "locality.") && p.Name == "":
			p.PlaceType, p.Name = domain.PlaceVillage, item.Text
		}
	}
	return p
}
