// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/api/handlers"
	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/assistant"
	"github.com/booking-assistant/backend/internal/auth"
	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/calendar"
	"github.com/booking-assistant/backend/internal/dialogue"
	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/websocket"
)

// Services are the collaborators the routes are wired to.
type Services struct {
	DB        *storage.DB
	Bookings  *storage.BookingRepository
	Store     *availability.Store
	Engine    *dialogue.Engine
	Assistant *assistant.Service
	Auth      *auth.Provider
	Busy      *calendar.BusyLookup
	Hub       *websocket.Hub
	Sweeper   *dialogue.Sweeper

	// Redis is pinged by the health check when sessions live in Redis.
	Redis handlers.Pinger

	Location  *time.Location
	StaticDir string
	Limiter   *middleware.RateLimiter
	Logger    *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(logger))
	r.Use(middleware.ErrorRecovery(logger))

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Redis)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(statusSources(s), s.Hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, s.Assistant, s.Limiter, logger)).Methods("GET")

	// Chat endpoints, rate limited per client
	chat := api.PathPrefix("/sessions").Subrouter()
	chat.Use(middleware.RateLimit(s.Limiter, logger))
	chat.HandleFunc("/{id}", handlers.GetSession(s.Assistant)).Methods("GET")
	chat.HandleFunc("/{id}", handlers.ResetSession(s.Assistant)).Methods("DELETE")
	chat.HandleFunc("/{id}/messages", handlers.PostMessage(s.Assistant)).Methods("POST")
	chat.HandleFunc("/{id}/select", handlers.SelectSlot(s.Assistant)).Methods("POST")
	chat.HandleFunc("/{id}/confirm", handlers.ConfirmSlot(s.Assistant)).Methods("POST")

	// Slot endpoints
	api.HandleFunc("/slots", handlers.ListSlots(s.Store)).Methods("GET")
	api.HandleFunc("/slots/week", handlers.WeekSlots(s.Store)).Methods("GET")

	// Booking endpoints; export.ics is registered before {id}
	api.HandleFunc("/bookings", handlers.ListBookings(s.Store)).Methods("GET")
	api.HandleFunc("/bookings/export.ics", handlers.ExportBookings(s.Store, s.Location)).Methods("GET")
	api.HandleFunc("/bookings/{id}", handlers.GetBooking(s.Store)).Methods("GET")
	api.HandleFunc("/bookings/{id}/cancel", handlers.CancelBooking(s.Assistant)).Methods("POST")

	// Calendar endpoints
	api.HandleFunc("/calendar/freebusy", handlers.FreeBusy(s.Busy)).Methods("GET")

	// Auth endpoints
	api.HandleFunc("/auth/credentials", handlers.SaveCredentials(s.Auth)).Methods("POST")
	api.HandleFunc("/auth/credentials", handlers.Logout(s.Auth)).Methods("DELETE")
	api.HandleFunc("/auth/status", handlers.AuthStatus(s.Auth)).Methods("GET")

	// Serve static frontend files
	if s.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}

func statusSources(s Services) handlers.StatusSources {
	var src handlers.StatusSources
	if s.Bookings != nil {
		src.Bookings = s.Bookings
	}
	if s.Engine != nil {
		src.Sessions = s.Engine
	}
	if s.Sweeper != nil {
		src.Sweeper = s.Sweeper
	}
	return src
}
