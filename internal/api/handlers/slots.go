package handlers

import (
	"context"
	"net/http"

	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// SlotQuerier answers slot listings.
type SlotQuerier interface {
	SlotsForDate(ctx context.Context, date string) ([]models.TimeSlot, error)
	AvailableSlotsForDate(ctx context.Context, date string) ([]models.TimeSlot, error)
	SlotsForWeek(ctx context.Context, start string) ([]models.TimeSlot, error)
}

var _ SlotQuerier = (*availability.Store)(nil)

func dateParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	date := r.URL.Query().Get(name)
	if date == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, name+" is required")
		return "", false
	}
	if _, err := models.ParseDate(date); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, name+" must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}

// ListSlots returns the slots of one day, optionally only the open ones.
func ListSlots(slots SlotQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := dateParam(w, r, "date")
		if !ok {
			return
		}

		var (
			list []models.TimeSlot
			err  error
		)
		if r.URL.Query().Get("available") == "true" {
			list, err = slots.AvailableSlotsForDate(r.Context(), date)
		} else {
			list, err = slots.SlotsForDate(r.Context(), date)
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query slots")
			return
		}
		if list == nil {
			list = []models.TimeSlot{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// WeekSlots returns seven days of slots starting at ?start.
func WeekSlots(slots SlotQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, ok := dateParam(w, r, "start")
		if !ok {
			return
		}

		list, err := slots.SlotsForWeek(r.Context(), start)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query slots")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
