// Package nominatim reverse geocodes coordinates with the OpenStreetMap
// Nominatim API.
package nominatim

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

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client implements domain.ReverseGeocoder.
type Client struct {
	rest    *rest.Client
	baseURL string
}

// NewClient creates a Nominatim client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := rest.New("nominatim", timeout, metrics)
	rc.UserAgent = userAgent
	return &Client{rest: rc, baseURL: strings.TrimRight(baseURL, "/")}
}

// ReverseGeocode returns the postcode and settlement classification at a coordinate.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', 6, 64)},
		"addressdetails": {"1"},
	}

	var resp response
	if err := c.rest.GetJSON(ctx, c.baseURL+"/reverse?"+params.Encode(), &resp); err != nil {
		return domain.Place{}, fmt.Errorf("reverse geocode: %w", err)
	}
	if resp.Error != "" {
		return domain.Place{}, fmt.Errorf("reverse geocode: %s", resp.Error)
	}

	return resp.Address.place(), nil
}

// Nominatim API response types.

type response struct {
	Error   string  `json:"error"`
	Address address `json:"address"`
}

type address struct {
	Postcode string `json:"postcode"`
	City     string `json:"city"`
	Town     string `json:"town"`
	Village  string `json:"village"`
	Hamlet   string `json:"hamlet"`
	County   string `json:"county"`
}

func (a address) place() domain.Place {
	p := domain.Place{PostalCode: a.Postcode, PlaceType: domain.PlaceOther, Name: a.County}
	switch {
	case a.City != "":
		p.PlaceType, p.Name = domain.PlaceCity, a.City
	case a.Town != "":
		p.PlaceType, p.Name = domain.PlaceTown, a.Town
	case a.Village != "":
		p.PlaceType, p.Name = domain.PlaceVillage, a.Village
	case a.Hamlet != "":
		p.PlaceType, p.Name = domain.PlaceHamlet, a.Hamlet
	}
	return p
}
