//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/adapter/kafka"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/observability"
	"github.com/couchcryptid/weather-spectrum/internal/relay"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// auditMessage is a decoded audit record with its key and headers.
type auditMessage struct {
	Record  domain.NotificationRecord
	Key     string
	Headers map[string]string
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("audit-test-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func readAudit(ctx context.Context, t *testing.T, consumer *kafkago.Reader) auditMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from audit topic")

	rec, err := kafka.DecodeMessage(msg)
	require.NoError(t, err)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return auditMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

// TestAuditWriter_RoundTrip publishes one record and reads it back.
func TestAuditWriter_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "test-audit"
	createTopic(t, broker, topic)

	writer := kafka.NewWriter([]string{broker}, topic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	sent := domain.NotificationRecord{
		ID:         "rec-1",
		Title:      "Severe Weather Alert",
		Message:    "Take shelter now",
		URL:        domain.DefaultNotificationURL,
		Segments:   []string{domain.DefaultSegment},
		Status:     200,
		ProviderID: "n-1",
		Recipients: 12,
		CreatedAt:  time.Date(2024, time.May, 10, 20, 0, 0, 0, time.UTC),
	}
	require.NoError(t, writer.Ping(ctx))
	require.NoError(t, writer.Publish(ctx, sent))

	got := readAudit(ctx, t, newConsumer(t, broker, topic))
	assert.Equal(t, "rec-1", got.Key)
	assert.Equal(t, "200", got.Headers["status"])
	assert.Equal(t, "2024-05-10T20:00:00Z", got.Headers["created_at"])
	assert.Equal(t, sent, got.Record)
}

type stubSender struct{}

func (stubSender) Send(context.Context, domain.Notification) (domain.DeliveryResult, error) {
	return domain.DeliveryResult{StatusCode: 400, Body: []byte(`{"errors":["All included players are not subscribed"]}`)}, nil
}

type stubEnricher struct{}

func (stubEnricher) Enrich(context.Context, float64, float64) domain.Enrichment {
	return domain.SentinelEnrichment()
}

// TestRelay_PublishesAudit sends through the relay handler and checks the
// rejected attempt lands on the audit topic.
func TestRelay_PublishesAudit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	const topic = "test-relay-audit"
	createTopic(t, broker, topic)

	writer := kafka.NewWriter([]string{broker}, topic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	h := relay.New(stubSender{}, stubEnricher{}, discardLogger(), metrics, relay.WithAuditor(writer))

	req := httptest.NewRequest(http.MethodPost, relay.PathSendNotification,
		strings.NewReader(`{"title":"Hail","message":"Take cover","segments":["Texas"]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	h.Wait()

	require.Equal(t, http.StatusBadRequest, rec.Code)

	got := readAudit(ctx, t, newConsumer(t, broker, topic))
	assert.NotEmpty(t, got.Key)
	assert.Equal(t, got.Key, got.Record.ID)
	assert.Equal(t, "Hail", got.Record.Title)
	assert.Equal(t, []string{"Texas"}, got.Record.Segments)
	assert.Equal(t, 400, got.Record.Status)
	assert.Equal(t, "All included players are not subscribed", got.Record.Error)
}
