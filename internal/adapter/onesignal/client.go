// Package onesignal sends push notifications through the OneSignal REST API.
package onesignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
)

// DefaultAPIURL is the notifications endpoint of the OneSignal REST API.
const DefaultAPIURL = "https://onesignal.com/api/v1/notifications"

// maxResponseBody bounds how much of the provider response is relayed.
const maxResponseBody = 1 << 20

// Client posts notifications to OneSignal.
type Client struct {
	appID      string
	apiKey     string
	apiURL     string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewClient creates a OneSignal client.
func NewClient(appID, apiKey, apiURL string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		appID:      appID,
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
}

// Send posts the notification and returns the provider status and body as-is.
// The notification must already carry its defaults. An error is returned only
// when no response was received.
func (c *Client) Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error) {
	payload, err := json.Marshal(request{
		AppID:            c.appID,
		Headings:         localized{EN: n.Title},
		Contents:         localized{EN: n.Message},
		URL:              n.URL,
		IncludedSegments: n.Segments,
	})
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest("onesignal", start, err)
		return domain.DeliveryResult{}, fmt.Errorf("onesignal request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	c.metrics.ObserveRequest("onesignal", start, err)
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("read onesignal response: %w", err)
	}
	return domain.DeliveryResult{StatusCode: resp.StatusCode, Body: body}, nil
}

// OneSignal API request types.

type request struct {
	AppID            string    `json:"app_id"`
	Headings         localized `json:"headings"`
	Contents         localized `json:"contents"`
	URL              string    `json:"url,omitempty"`
	IncludedSegments []string  `json:"included_segments"`
}

type localized struct {
	EN string `json:"en"`
}
