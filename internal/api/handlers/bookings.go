package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/calendar"
	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// BookingReader reads the ledger.
type BookingReader interface {
	AllBookings(ctx context.Context) ([]models.Booking, error)
	Booking(ctx context.Context, id string) (*models.Booking, error)
}

// BookingCanceller cancels bookings and announces it.
type BookingCanceller interface {
	CancelBooking(ctx context.Context, id string) (*models.Booking, error)
}

var _ BookingReader = (*availability.Store)(nil)

// ListBookings returns the whole ledger in commit order.
func ListBookings(bookings BookingReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := bookings.AllBookings(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query bookings")
			return
		}
		if list == nil {
			list = []models.Booking{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetBooking returns a single booking.
func GetBooking(bookings BookingReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := bookings.Booking(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query booking")
			return
		}
		if b == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Booking not found")
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// CancelBooking frees a confirmed booking's slot.
func CancelBooking(svc BookingCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.CancelBooking(r.Context(), mux.Vars(r)["id"])
		switch {
		case errors.Is(err, storage.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Booking not found")
			return
		case errors.Is(err, storage.ErrNotConfirmed):
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Booking is not confirmed")
			return
		case err != nil:
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to cancel booking")
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// ExportBookings serves the confirmed bookings as an iCalendar file.
func ExportBookings(bookings BookingReader, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := bookings.AllBookings(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query bookings")
			return
		}

		var buf bytes.Buffer
		if err := calendar.ExportICS(&buf, list, loc, time.Now()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to export bookings")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="bookings.ics"`)
		w.Write(buf.Bytes())
	}
}
