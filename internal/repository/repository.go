// Package repository persists admin notification history.
package repository

import (
	"context"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
)

// DefaultListLimit and MaxListLimit bound history queries.
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// NotificationRepository stores notification send attempts.
type NotificationRepository interface {
	Add(ctx context.Context, rec domain.NotificationRecord) error
	List(ctx context.Context, limit int) ([]domain.NotificationRecord, error)
}
