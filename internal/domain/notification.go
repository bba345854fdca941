package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Notification defaults applied by the relay.
const (
	DefaultNotificationURL = "https://theweatherspectrum.com"
	DefaultSegment         = "Subscribed Users"
)

// Admin panel input limits, in characters.
const (
	MaxTitleLength   = 100
	MaxMessageLength = 200
)

var (
	ErrTitleRequired           = errors.New("title is required")
	ErrMessageRequired         = errors.New("message is required")
	ErrTitleAndMessageRequired = errors.New("title and message are required")
	ErrTitleTooLong            = fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	ErrMessageTooLong          = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
)

// Notification is a push broadcast request.
type Notification struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	URL      string   `json:"url,omitempty"`
	Segments []string `json:"segments,omitempty"`
}

// Validate checks that title and message are present. Blank strings count as missing.
func (n Notification) Validate() error {
	noTitle := strings.TrimSpace(n.Title) == ""
	noMessage := strings.TrimSpace(n.Message) == ""
	switch {
	case noTitle && noMessage:
		return ErrTitleAndMessageRequired
	case noTitle:
		return ErrTitleRequired
	case noMessage:
		return ErrMessageRequired
	}
	return nil
}

// ValidateLengths applies the admin panel length limits on top of Validate.
func (n Notification) ValidateLengths() error {
	if err := n.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(n.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// WithDefaults fills in the landing URL and target segments when unset.
func (n Notification) WithDefaults(defaultURL string) Notification {
	if n.URL == "" {
		if defaultURL == "" {
			defaultURL = DefaultNotificationURL
		}
		n.URL = defaultURL
	}
	if len(n.Segments) == 0 {
		n.Segments = []string{DefaultSegment}
	}
	return n
}

// DeliveryResult is the push provider's raw answer, relayed verbatim.
type DeliveryResult struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the provider accepted the notification.
func (r DeliveryResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// DeliverySummary is the subset of the provider response kept in history.
type DeliverySummary struct {
	ID         string   `json:"id"`
	Recipients int      `json:"recipients"`
	Errors     []string `json:"errors,omitempty"`
}

// Summary decodes the provider body. Unknown or malformed bodies yield an
// empty summary; provider error lists may be strings or objects.
func (r DeliveryResult) Summary() DeliverySummary {
	var raw struct {
		ID         string          `json:"id"`
		Recipients int             `json:"recipients"`
		Errors     json.RawMessage `json:"errors"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &raw); err != nil {
		return DeliverySummary{}
	}

	s := DeliverySummary{ID: raw.ID, Recipients: raw.Recipients}
	if raw.Error != "" {
		s.Errors = append(s.Errors, raw.Error)
	}
	var list []string
	if err := json.Unmarshal(raw.Errors, &list); err == nil {
		s.Errors = append(s.Errors, list...)
	} else if len(raw.Errors) > 0 && string(raw.Errors) != "null" {
		s.Errors = append(s.Errors, string(raw.Errors))
	}
	return s
}

// NotificationRecord is one send attempt as kept in history and published
// to the audit topic.
type NotificationRecord struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	URL        string    `json:"url"`
	Segments   []string  `json:"segments"`
	Status     int       `json:"status"`
	ProviderID string    `json:"provider_id,omitempty"`
	Recipients int       `json:"recipients"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewNotificationRecord summarizes a send attempt. sendErr is set when the
// provider could not be reached at all.
func NewNotificationRecord(id string, n Notification, res DeliveryResult, sendErr error, at time.Time) NotificationRecord {
	rec := NotificationRecord{
		ID:        id,
		Title:     n.Title,
		Message:   n.Message,
		URL:       n.URL,
		Segments:  n.Segments,
		Status:    res.StatusCode,
		CreatedAt: at.UTC(),
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
		return rec
	}
	sum := res.Summary()
	rec.ProviderID = sum.ID
	rec.Recipients = sum.Recipients
	if len(sum.Errors) > 0 {
		rec.Error = strings.Join(sum.Errors, "; ")
	} else if !res.OK() {
		rec.Error = fmt.Sprintf("provider returned status %d", res.StatusCode)
	}
	return rec
}
