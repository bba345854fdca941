// Package relay is the notification relay: a small HTTP service that keeps
// the push provider credentials server-side and forwards broadcast requests,
// plus a census lookup endpoint for browser clients.
package relay

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/google/uuid"
)

const (
	PathSendNotification = "/send-notification"
	PathCensusLookup     = "/census-lookup"

	maxRequestBody = 64 << 10
	auditTimeout   = 5 * time.Second
)

// Sender delivers a notification to the push provider.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error)
}

// Auditor records relayed notifications. Failures never affect the response.
type Auditor interface {
	Publish(ctx context.Context, rec domain.NotificationRecord) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithSecret requires "Authorization: Bearer <secret>" on /send-notification.
func WithSecret(secret string) Option {
	return func(h *Handler) { h.secret = secret }
}

// WithDefaultURL overrides the landing URL used when a request has none.
func WithDefaultURL(url string) Option {
	return func(h *Handler) { h.defaultURL = url }
}

// WithAuditor publishes an audit record for every relayed notification.
func WithAuditor(a Auditor) Option {
	return func(h *Handler) { h.auditor = a }
}

// Handler serves the relay endpoints.
type Handler struct {
	sender     Sender
	enricher   domain.Enricher
	auditor    Auditor
	secret     string
	defaultURL string
	logger     *slog.Logger
	metrics    *observability.Metrics

	audits sync.WaitGroup
}

// New creates a relay handler.
func New(sender Sender, enricher domain.Enricher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Handler {
	h := &Handler{
		sender:     sender,
		enricher:   enricher,
		defaultURL: domain.DefaultNotificationURL,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP routes a request. Every response allows any origin.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("relay handler panic", "path", r.URL.Path, "panic", rec)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}()

	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case PathSendNotification:
		h.sendNotification(w, r)
	case PathCensusLookup:
		h.censusLookup(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// Wait blocks until in-flight audit publishes finish.
func (h *Handler) Wait() {
	h.audits.Wait()
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var n domain.Notification
	if err := decodeBody(w, r, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := n.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n = n.WithDefaults(h.defaultURL)

	res, err := h.sender.Send(r.Context(), n)
	h.audit(r.Context(), n, res, err)
	if err != nil {
		h.metrics.NotificationsRelayed.WithLabelValues("error").Inc()
		h.logger.Error("notification relay failed", "title", n.Title, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.metrics.NotificationsRelayed.WithLabelValues(statusClass(res.StatusCode)).Inc()
	if !res.OK() {
		h.logger.Warn("push provider rejected notification", "status", res.StatusCode, "body", string(res.Body))
	} else {
		h.logger.Info("notification relayed", "title", n.Title, "status", res.StatusCode)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(res.Body)
}

type censusRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type censusResponse struct {
	ZIP        string `json:"zip"`
	Population int    `json:"population"`
	Source     string `json:"source"`
}

// censusLookup always answers 200; unusable input yields the sentinel.
func (h *Handler) censusLookup(w http.ResponseWriter, r *http.Request) {
	var req censusRequest
	en := domain.SentinelEnrichment()
	if err := decodeBody(w, r, &req); err != nil || req.Lat == nil || req.Lon == nil {
		h.logger.Warn("census lookup with unusable coordinates", "error", err)
	} else {
		en = h.enricher.Enrich(r.Context(), *req.Lat, *req.Lon)
	}
	sharedobs.WriteJSON(w, http.StatusOK, censusResponse{ZIP: en.ZIP, Population: en.Population, Source: string(en.Source)})
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

func (h *Handler) audit(ctx context.Context, n domain.Notification, res domain.DeliveryResult, sendErr error) {
	if h.auditor == nil {
		return
	}
	rec := domain.NewNotificationRecord(uuid.NewString(), n, res, sendErr, domain.Clock().Now())
	h.audits.Add(1)
	go func() {
		defer h.audits.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
		defer cancel()
		if err := h.auditor.Publish(ctx, rec); err != nil {
			h.metrics.AuditPublishErrors.Inc()
			h.logger.Warn("notification audit publish failed", "id", rec.ID, "error", err)
		}
	}()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", code/100)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
