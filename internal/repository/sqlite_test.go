package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func record(title string, at time.Time) domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:         uuid.NewString(),
		Title:      title,
		Message:    "Hail expected this afternoon.",
		URL:        domain.DefaultNotificationURL,
		Segments:   []string{domain.DefaultSegment},
		Status:     200,
		ProviderID: "n-" + title,
		Recipients: 10,
		CreatedAt:  at.UTC(),
	}
}

func TestSQLiteDB_AddAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)

	first := record("first", base)
	second := record("second", base.Add(time.Minute))
	failed := record("failed", base.Add(2*time.Minute))
	failed.Status = 400
	failed.ProviderID = ""
	failed.Recipients = 0
	failed.Error = "Invalid app_id"

	for _, rec := range []domain.NotificationRecord{first, second, failed} {
		require.NoError(t, db.Add(ctx, rec))
	}

	got, err := db.List(ctx, 10)
	require.NoError(t, err)
	want := []domain.NotificationRecord{failed, second, first}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteDB_ListLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)

	for i := range 25 {
		require.NoError(t, db.Add(ctx, record(fmt.Sprint(i), base.Add(time.Duration(i)*time.Second))))
	}

	got, err := db.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "24", got[0].Title)

	got, err = db.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultListLimit)
}

func TestSQLiteDB_ListEmpty(t *testing.T) {
	got, err := setupTestDB(t).List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSQLiteDB_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	rec := record("dup", time.Now())

	require.NoError(t, db.Add(context.Background(), rec))
	require.Error(t, db.Add(context.Background(), rec))
}
