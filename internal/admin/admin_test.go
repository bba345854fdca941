package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticator(t *testing.T) {
	a, err := NewAuthenticator(hashOf(t, "hailstorm"))
	require.NoError(t, err)
	assert.True(t, a.Enabled())
	require.NoError(t, a.Check("hailstorm"))
	require.ErrorIs(t, a.Check("wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, a.Check(""), ErrInvalidCredentials)
}

func TestAuthenticator_Disabled(t *testing.T) {
	a, err := NewAuthenticator("")
	require.NoError(t, err)
	assert.False(t, a.Enabled())
	require.ErrorIs(t, a.Check("anything"), ErrDisabled)
}

func TestAuthenticator_InvalidHash(t *testing.T) {
	_, err := NewAuthenticator("plaintext-password")
	require.Error(t, err)
}

func TestSessions_LoginLogout(t *testing.T) {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	s := NewSessions(store, time.Hour, false)
	s.now = func() time.Time { return time.Unix(1715371200, 0) }

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, s.Authenticated(anon))

	rec := httptest.NewRecorder()
	require.NoError(t, s.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	authed := httptest.NewRequest(http.MethodGet, "/", nil)
	authed.AddCookie(cookies[0])
	assert.True(t, s.Authenticated(authed))
	at, ok := s.LoginTime(authed)
	require.True(t, ok)
	assert.Equal(t, int64(1715371200), at.Unix())

	out := httptest.NewRecorder()
	require.NoError(t, s.Logout(out, authed))
	expired := out.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Negative(t, expired[0].MaxAge)
}

func TestSessions_RejectsForgedCookie(t *testing.T) {
	s := NewSessions(sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")), time.Hour, false)
	other := NewSessions(sessions.NewCookieStore([]byte("fedcba9876543210fedcba9876543210")), time.Hour, false)

	rec := httptest.NewRecorder()
	require.NoError(t, other.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	assert.False(t, s.Authenticated(req))
}

func TestQuickTemplates(t *testing.T) {
	tpls := QuickTemplates()
	require.Len(t, tpls, 4)
	for _, tpl := range tpls {
		n := domain.Notification{Title: tpl.Title, Message: tpl.Message}
		assert.NoError(t, n.ValidateLengths(), tpl.Label)
	}
}

type fakeSender struct {
	res  domain.DeliveryResult
	err  error
	sent int
}

func (f *fakeSender) Send(context.Context, domain.Notification) (domain.DeliveryResult, error) {
	f.sent++
	return f.res, f.err
}

type memRepo struct {
	records []domain.NotificationRecord
	err     error
}

func (m *memRepo) Add(_ context.Context, rec domain.NotificationRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memRepo) List(_ context.Context, limit int) ([]domain.NotificationRecord, error) {
	return m.records[:min(limit, len(m.records))], nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_Send(t *testing.T) {
	sender := &fakeSender{res: domain.DeliveryResult{StatusCode: 200, Body: []byte(`{"id":"n-1","recipients":42}`)}}
	repo := &memRepo{}
	svc := NewService(sender, repo, discard())

	rec, err := svc.Send(context.Background(), domain.Notification{Title: "Hail", Message: "Take cover"})
	require.NoError(t, err)
	assert.Equal(t, 42, rec.Recipients)
	assert.Equal(t, domain.DefaultNotificationURL, rec.URL)
	require.Len(t, repo.records, 1)
	assert.Equal(t, rec.ID, repo.records[0].ID)
	assert.Equal(t, "Notification sent to 42 subscribers!", ResultMessage(rec))
}

func TestService_Send_Validation(t *testing.T) {
	sender := &fakeSender{}
	repo := &memRepo{}
	svc := NewService(sender, repo, discard())

	_, err := svc.Send(context.Background(), domain.Notification{Title: strings.Repeat("x", 101), Message: "m"})
	require.ErrorIs(t, err, domain.ErrTitleTooLong)
	_, err = svc.Send(context.Background(), domain.Notification{Title: "t"})
	require.ErrorIs(t, err, domain.ErrMessageRequired)

	assert.Zero(t, sender.sent)
	assert.Empty(t, repo.records)
}

func TestService_Send_RecordsFailures(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(&fakeSender{err: errors.New("connection refused")}, repo, discard())

	rec, err := svc.Send(context.Background(), domain.Notification{Title: "t", Message: "m"})
	require.Error(t, err)
	require.Len(t, repo.records, 1)
	assert.Equal(t, "connection refused", rec.Error)
	assert.Equal(t, "connection refused", ResultMessage(rec))
}

func TestService_Send_HistoryFailureDoesNotFailSend(t *testing.T) {
	sender := &fakeSender{res: domain.DeliveryResult{StatusCode: 200, Body: []byte(`{}`)}}
	svc := NewService(sender, &memRepo{err: errors.New("disk full")}, discard())

	rec, err := svc.Send(context.Background(), domain.Notification{Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "Notification sent to all subscribers!", ResultMessage(rec))
}

func TestResultMessage_Rejected(t *testing.T) {
	assert.Equal(t, "Failed to send notification", ResultMessage(domain.NotificationRecord{Status: 500}))
}
