package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-assistant/backend/internal/storage"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHealthCheck_RedisDown(t *testing.T) {
	h := HealthCheck(openDB(t), pinger{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.True(t, body.DBConnected)
	require.NotNil(t, body.RedisConnected)
	assert.False(t, *body.RedisConnected)
}

type counts struct{}

func (counts) CountConfirmed(context.Context) (int, error) { return 3, nil }
func (counts) ActiveSessions(context.Context) (int, error) { return 2, nil }

type sweepTimes struct{ next, last time.Time }

func (s sweepTimes) NextRun() *time.Time { return &s.next }
func (s sweepTimes) LastRun() time.Time  { return s.last }

func TestStatus(t *testing.T) {
	next := time.Date(2030, 1, 7, 9, 1, 0, 0, time.UTC)
	h := Status(StatusSources{
		Bookings: counts{},
		Sessions: counts{},
		Sweeper:  sweepTimes{next: next},
	}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.ConfirmedBookings)
	assert.Equal(t, 2, body.ActiveSessions)
	require.NotNil(t, body.NextSweepAt)
	assert.True(t, next.Equal(*body.NextSweepAt))
	assert.Nil(t, body.LastSweepAt)
}
