// Package census looks up ZCTA populations from the ACS 5-year estimates.
package census

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// DefaultBaseURL is the ACS 5-year dataset used for total population.
const DefaultBaseURL = "https://api.census.gov/data/2022/acs/acs5"

// totalPopulation is the ACS variable for total population.
const totalPopulation = "B01003_001E"

// ErrNoData is returned when the census API has no row for the ZCTA.
var ErrNoData = errors.New("no census data for ZCTA")

// Client implements domain.PopulationSource.
type Client struct {
	rest    *rest.Client
	baseURL string
	apiKey  string
}

// NewClient creates a census client. An empty key uses the keyless quota.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		rest:    rest.New("census", timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// ZCTAPopulation returns the total population of a ZIP Code Tabulation Area.
func (c *Client) ZCTAPopulation(ctx context.Context, zip string) (int, error) {
	params := url.Values{
		"get": {totalPopulation},
		"for": {"zip code tabulation area:" + zip},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	// The API answers with a header row followed by data rows of strings.
	var rows [][]string
	if err := c.rest.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &rows); err != nil {
		return 0, fmt.Errorf("census population %s: %w", zip, err)
	}
	if len(rows) < 2 || len(rows[1]) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoData, zip)
	}

	pop, err := strconv.Atoi(rows[1][0])
	if err != nil {
		return 0, fmt.Errorf("parse census population %q: %w", rows[1][0], err)
	}
	return pop, nil
}
