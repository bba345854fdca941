package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotification_Validate(t *testing.T) {
	tests := []struct {
		name string
		n    domain.Notification
		want error
	}{
		{"ok", domain.Notification{Title: "Hail", Message: "Take cover"}, nil},
		{"missing title", domain.Notification{Message: "Take cover"}, domain.ErrTitleRequired},
		{"blank title", domain.Notification{Title: "  ", Message: "Take cover"}, domain.ErrTitleRequired},
		{"missing message", domain.Notification{Title: "Hail"}, domain.ErrMessageRequired},
		{"missing both", domain.Notification{}, domain.ErrTitleAndMessageRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.n.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNotification_ValidateLengths(t *testing.T) {
	ok := domain.Notification{Title: strings.Repeat("t", 100), Message: strings.Repeat("m", 200)}
	require.NoError(t, ok.ValidateLengths())

	long := domain.Notification{Title: strings.Repeat("t", 101), Message: "m"}
	require.ErrorIs(t, long.ValidateLengths(), domain.ErrTitleTooLong)

	long = domain.Notification{Title: "t", Message: strings.Repeat("é", 201)}
	require.ErrorIs(t, long.ValidateLengths(), domain.ErrMessageTooLong)
}

func TestNotification_WithDefaults(t *testing.T) {
	n := domain.Notification{Title: "a", Message: "b"}.WithDefaults("")
	assert.Equal(t, "https://theweatherspectrum.com", n.URL)
	assert.Equal(t, []string{"Subscribed Users"}, n.Segments)

	n = domain.Notification{Title: "a", Message: "b", URL: "https://x.test", Segments: []string{"Admins"}}.WithDefaults("https://ignored")
	assert.Equal(t, "https://x.test", n.URL)
	assert.Equal(t, []string{"Admins"}, n.Segments)
}

func TestDeliveryResult_Summary(t *testing.T) {
	ok := domain.DeliveryResult{StatusCode: 200, Body: []byte(`{"id":"abc","recipients":42}`)}
	assert.True(t, ok.OK())
	assert.Equal(t, domain.DeliverySummary{ID: "abc", Recipients: 42}, ok.Summary())

	failed := domain.DeliveryResult{StatusCode: 400, Body: []byte(`{"errors":["All included players are not subscribed"]}`)}
	assert.False(t, failed.OK())
	assert.Equal(t, []string{"All included players are not subscribed"}, failed.Summary().Errors)

	objErrors := domain.DeliveryResult{StatusCode: 400, Body: []byte(`{"errors":{"invalid_aliases":{}}}`)}
	assert.Len(t, objErrors.Summary().Errors, 1)

	relayErr := domain.DeliveryResult{StatusCode: 500, Body: []byte(`{"error":"boom"}`)}
	assert.Equal(t, []string{"boom"}, relayErr.Summary().Errors)

	assert.Equal(t, domain.DeliverySummary{}, domain.DeliveryResult{Body: []byte("nope")}.Summary())
}

func TestNewNotificationRecord(t *testing.T) {
	at := time.Date(2024, 5, 10, 15, 0, 0, 0, time.FixedZone("CDT", -5*60*60))
	n := domain.Notification{Title: "Hail", Message: "Take cover"}.WithDefaults("")

	t.Run("accepted", func(t *testing.T) {
		res := domain.DeliveryResult{StatusCode: 200, Body: []byte(`{"id":"n-1","recipients":12}`)}
		rec := domain.NewNotificationRecord("rec-1", n, res, nil, at)
		assert.Equal(t, "rec-1", rec.ID)
		assert.Equal(t, "n-1", rec.ProviderID)
		assert.Equal(t, 12, rec.Recipients)
		assert.Empty(t, rec.Error)
		assert.Equal(t, time.UTC, rec.CreatedAt.Location())
		assert.Equal(t, []string{domain.DefaultSegment}, rec.Segments)
	})

	t.Run("rejected", func(t *testing.T) {
		res := domain.DeliveryResult{StatusCode: 400, Body: []byte(`{"errors":["Invalid app_id"]}`)}
		rec := domain.NewNotificationRecord("rec-2", n, res, nil, at)
		assert.Equal(t, 400, rec.Status)
		assert.Equal(t, "Invalid app_id", rec.Error)
	})

	t.Run("rejected without body", func(t *testing.T) {
		rec := domain.NewNotificationRecord("rec-3", n, domain.DeliveryResult{StatusCode: 502}, nil, at)
		assert.Equal(t, "provider returned status 502", rec.Error)
	})

	t.Run("unreachable", func(t *testing.T) {
		rec := domain.NewNotificationRecord("rec-4", n, domain.DeliveryResult{}, errors.New("dial tcp: refused"), at)
		assert.Zero(t, rec.Status)
		assert.Equal(t, "dial tcp: refused", rec.Error)
	})
}
