// Package relayclient calls the notification relay from the site API.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/rest"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

const maxResponseBody = 1 << 20

// Client sends notifications and census lookups through the relay.
type Client struct {
	rest    *rest.Client
	baseURL string
	secret  string
	logger  *slog.Logger
}

// NewClient creates a relay client. secret, when set, is sent as a bearer token.
func NewClient(baseURL, secret string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rest:    rest.New("relay", timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		logger:  logger,
	}
}

// Send posts the notification to /send-notification and returns the relayed
// provider status and body. Non-2xx answers are results, not errors.
func (c *Client) Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send-notification", bytes.NewReader(payload))
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	start := time.Now()
	resp, err := c.rest.HTTP.Do(req)
	if err != nil {
		c.rest.Metrics.ObserveRequest("relay", start, err)
		return domain.DeliveryResult{}, fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	c.rest.Metrics.ObserveRequest("relay", start, err)
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("read relay response: %w", err)
	}
	return domain.DeliveryResult{StatusCode: resp.StatusCode, Body: body}, nil
}

type censusRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type censusResponse struct {
	ZIP        string `json:"zip"`
	Population int    `json:"population"`
	Source     string `json:"source"`
}

// Enrich implements domain.Enricher via /census-lookup. Any failure yields
// the sentinel enrichment. The relay's source label is kept when it is one we
// know; otherwise the result is labelled relay.
func (c *Client) Enrich(ctx context.Context, lat, lon float64) domain.Enrichment {
	var out censusResponse
	if err := c.rest.PostJSON(ctx, c.baseURL+"/census-lookup", censusRequest{Lat: lat, Lon: lon}, &out); err != nil {
		c.logger.Warn("relay census lookup failed", "lat", lat, "lon", lon, "error", err)
		return domain.SentinelEnrichment()
	}
	en := domain.Enrichment{ZIP: out.ZIP, Population: out.Population, Source: domain.SourceRelay}
	if src, ok := domain.ParseEnrichmentSource(out.Source); ok {
		en.Source = src
	} else if out.ZIP == domain.UnknownZIP && out.Population == domain.SentinelPopulation {
		en.Source = domain.SourceSentinel
	}
	return en
}
