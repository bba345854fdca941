package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/repository"
	"github.com/google/uuid"
)

// Sender forwards a notification to the relay.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error)
}

// Service sends admin notifications and keeps their history.
type Service struct {
	sender Sender
	repo   repository.NotificationRepository
	logger *slog.Logger
}

// NewService creates an admin notification service.
func NewService(sender Sender, repo repository.NotificationRepository, logger *slog.Logger) *Service {
	return &Service{sender: sender, repo: repo, logger: logger}
}

// Send validates, forwards and records a notification. Validation errors are
// returned before anything is sent. Every forwarded attempt is recorded,
// including rejected ones; the returned error is non-nil only when the relay
// could not be reached.
func (s *Service) Send(ctx context.Context, n domain.Notification) (domain.NotificationRecord, error) {
	if err := n.ValidateLengths(); err != nil {
		return domain.NotificationRecord{}, err
	}
	n = n.WithDefaults("")

	res, sendErr := s.sender.Send(ctx, n)
	rec := domain.NewNotificationRecord(uuid.NewString(), n, res, sendErr, domain.Clock().Now())

	if err := s.repo.Add(ctx, rec); err != nil {
		s.logger.Error("record notification history", "id", rec.ID, "error", err)
	}
	if sendErr != nil {
		return rec, fmt.Errorf("send notification: %w", sendErr)
	}
	s.logger.Info("admin notification sent", "id", rec.ID, "status", rec.Status, "recipients", rec.Recipients)
	return rec, nil
}

// History returns the most recent attempts, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	return s.repo.List(ctx, limit)
}

// ResultMessage is the panel feedback for a send attempt.
func ResultMessage(rec domain.NotificationRecord) string {
	switch {
	case rec.Error != "":
		return rec.Error
	case rec.Status < 200 || rec.Status > 299:
		return "Failed to send notification"
	case rec.Recipients > 0:
		return fmt.Sprintf("Notification sent to %d subscribers!", rec.Recipients)
	default:
		return "Notification sent to all subscribers!"
	}
}
