// Package spc fetches Storm Prediction Center filtered hail report feeds.
package spc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// DefaultBaseURL is the SPC storm reports directory.
const DefaultBaseURL = "https://www.spc.noaa.gov/climo/reports"

// Client implements hailmap.FeedSource.
type Client struct {
	rest    *rest.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates an SPC feed client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		rest:    rest.New("spc", timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// FeedURL returns the filtered hail CSV URL for a YYMMDD date.
func (c *Client) FeedURL(feedDate string) string {
	return fmt.Sprintf("%s/%s_rpts_filtered_hail.csv", c.baseURL, feedDate)
}

// FetchFeed downloads and parses the filtered hail reports for a YYMMDD date.
func (c *Client) FetchFeed(ctx context.Context, feedDate string) ([]domain.HailEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(feedDate), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.rest.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hail feed %s: %w", feedDate, err)
	}
	defer resp.Body.Close()

	events, err := domain.ParseFeed(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("hail feed fetched", "date", feedDate, "events", len(events))
	return events, nil
}
