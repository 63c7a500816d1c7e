// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/websocket"
)

// Pinger is an optional dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	DBConnected    bool   `json:"db_connected"`
	RedisConnected *bool  `json:"redis_connected,omitempty"`
}

// HealthCheck returns a handler that performs a health check. redis may be
// nil when sessions are kept in memory.
func HealthCheck(db *storage.DB, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:      "healthy",
			DBConnected: db.PingContext(ctx) == nil,
		}
		if !resp.DBConnected {
			resp.Status = "degraded"
		}
		if redis != nil {
			ok := redis.Ping(ctx) == nil
			resp.RedisConnected = &ok
			if !ok {
				resp.Status = "degraded"
			}
		}

		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

// StatusSources are the counters behind the status endpoint.
type StatusSources struct {
	Bookings interface {
		CountConfirmed(ctx context.Context) (int, error)
	}
	Sessions interface {
		ActiveSessions(ctx context.Context) (int, error)
	}
	Sweeper interface {
		NextRun() *time.Time
		LastRun() time.Time
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	ConfirmedBookings int        `json:"confirmed_bookings"`
	ActiveSessions    int        `json:"active_sessions"`
	ConnectedClients  int        `json:"connected_clients"`
	NextSweepAt       *time.Time `json:"next_sweep_at,omitempty"`
	LastSweepAt       *time.Time `json:"last_sweep_at,omitempty"`
}

// Status returns a handler that provides system status information.
func Status(src StatusSources, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var resp StatusResponse
		if src.Bookings != nil {
			resp.ConfirmedBookings, _ = src.Bookings.CountConfirmed(ctx)
		}
		if src.Sessions != nil {
			resp.ActiveSessions, _ = src.Sessions.ActiveSessions(ctx)
		}
		if hub != nil {
			resp.ConnectedClients = hub.ClientCount()
		}
		if src.Sweeper != nil {
			resp.NextSweepAt = src.Sweeper.NextRun()
			if last := src.Sweeper.LastRun(); !last.IsZero() {
				resp.LastSweepAt = &last
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
