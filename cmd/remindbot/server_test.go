package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"remindbot/internal/metrics"
	"remindbot/internal/models"
	"remindbot/internal/service"
	"remindbot/internal/store"
	"remindbot/internal/timeparse"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	st := store.New(filepath.Join(t.TempDir(), "reminders.json"), logger)
	require.NoError(t, st.Load())

	parser := timeparse.New(time.UTC, 9)
	svc := service.NewReminderService(st, parser, nil, nil, 10*time.Second, logger)
	return NewServer(models.ServerConfig{Port: 0}, svc, logger), st
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	metrics.GetRegistry().Reset()
	t.Cleanup(func() { metrics.GetRegistry().Reset() })
	metrics.IncrementCounter("reminders_created_total", nil, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "counters")
	assert.Contains(t, body, "uptime_ms")
}

func TestHandleReminders(t *testing.T) {
	s, st := newTestServer(t)

	_, err := st.Append(models.Reminder{
		ChatID:  100,
		DueAt:   time.Now().Add(time.Hour).UTC(),
		Caption: "upcoming",
	})
	require.NoError(t, err)
	_, err = st.Append(models.Reminder{
		ChatID:  100,
		DueAt:   time.Now().Add(-time.Hour).UTC(),
		Caption: "already due",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/reminders", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var reminders []models.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reminders))
	require.Len(t, reminders, 1)
	assert.Equal(t, "upcoming", reminders[0].Caption)
}

func TestRouterRejectsMutations(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/reminders", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
