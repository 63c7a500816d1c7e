package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/calendar"
)

// BusyLookup reads the remote calendar's busy periods for a day.
type BusyLookup interface {
	BusyOn(ctx context.Context, date string) ([]calendar.BusyPeriod, error)
}

var _ BusyLookup = (*calendar.BusyLookup)(nil)

// FreeBusyResponse is the free/busy answer for one day.
type FreeBusyResponse struct {
	Date string                `json:"date"`
	Busy []calendar.BusyPeriod `json:"busy"`
}

// FreeBusy returns the signed-in calendar's busy periods on ?date.
func FreeBusy(lookup BusyLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := dateParam(w, r, "date")
		if !ok {
			return
		}

		busy, err := lookup.BusyOn(r.Context(), date)
		if errors.Is(err, calendar.ErrNotAuthenticated) {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Sign in to read your calendar")
			return
		}
		if err != nil {
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUnavailable, "Failed to query calendar")
			return
		}
		writeJSON(w, http.StatusOK, FreeBusyResponse{Date: date, Busy: busy})
	}
}
