package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

const pingTimeout = 3 * time.Second

// Writer publishes notification audit records to a Kafka topic.
type Writer struct {
	writer  messageWriter
	brokers []string
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the notification audit topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, brokers: brokers, logger: logger}
}

// Ping reports whether at least one broker accepts a connection.
func (w *Writer) Ping(ctx context.Context) error {
	if len(w.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var errs []error
	for _, broker := range w.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("dial %s: %w", broker, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return errors.Join(errs...)
}

// Publish serializes and writes one audit record.
func (w *Writer) Publish(ctx context.Context, rec domain.NotificationRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification audit %s: %w", rec.ID, err)
	}
	w.logger.Debug("notification audit published", "id", rec.ID, "status", rec.Status)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a NotificationRecord into a Kafka message
// keyed by record id.
func serializeToMessage(rec domain.NotificationRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(strconv.Itoa(rec.Status))},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}

// DecodeMessage parses an audit message written by Writer.
func DecodeMessage(msg kafkago.Message) (domain.NotificationRecord, error) {
	var rec domain.NotificationRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("decode notification record: %w", err)
	}
	return rec, nil
}
