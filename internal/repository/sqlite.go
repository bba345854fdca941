package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteDB is a NotificationRepository backed by an SQLite file.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteDB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			url TEXT NOT NULL,
			segments TEXT NOT NULL,
			status INTEGER NOT NULL,
			provider_id TEXT,
			recipients INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add inserts a record.
func (s *SQLiteDB) Add(ctx context.Context, rec domain.NotificationRecord) error {
	segments, err := json.Marshal(rec.Segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, title, message, url, segments, status, provider_id, recipients, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Message, rec.URL, string(segments), rec.Status,
		rec.ProviderID, rec.Recipients, rec.Error, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert notification %s: %w", rec.ID, err)
	}
	return nil
}

// List returns up to limit records, newest first. Out of range limits fall
// back to DefaultListLimit.
func (s *SQLiteDB) List(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, message, url, segments, status, provider_id, recipients, error, created_at
		FROM notifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	records := []domain.NotificationRecord{}
	for rows.Next() {
		var (
			rec        domain.NotificationRecord
			segments   string
			providerID sql.NullString
			errText    sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Message, &rec.URL, &segments, &rec.Status,
			&providerID, &rec.Recipients, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(segments), &rec.Segments); err != nil {
			return nil, fmt.Errorf("decode segments of %s: %w", rec.ID, err)
		}
		rec.ProviderID = providerID.String
		rec.Error = errText.String
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
