// Package availability derives the daily slot template and marks slots
// free or busy against the booking ledger.
package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/storage/models"
)

var (
	// ErrSlotTaken is returned by Book when another booking won the slot
	// between the availability read and the commit.
	ErrSlotTaken = storage.ErrSlotTaken

	// ErrUnknownSlot is returned for a time that is not part of the template.
	ErrUnknownSlot = errors.New("time is not a slot in the working-hour template")
)

// DaysPerWeek is the span of a week view.
const DaysPerWeek = 7

// Store answers slot queries against a Ledger.
type Store struct {
	ledger       Ledger
	template     Template
	defaultTitle string
	now          func() time.Time
}

// NewStore creates a store over ledger using template. An empty
// defaultTitle falls back to "Meeting".
func NewStore(ledger Ledger, template Template, defaultTitle string) *Store {
	if defaultTitle == "" {
		defaultTitle = "Meeting"
	}
	return &Store{
		ledger:       ledger,
		template:     template,
		defaultTitle: defaultTitle,
		now:          time.Now,
	}
}

// SetClock overrides the clock used for createdAt.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Template returns the slot template in use.
func (s *Store) Template() Template {
	return s.template
}

// SlotsForDate returns every template slot on date in ascending time order.
func (s *Store) SlotsForDate(ctx context.Context, date string) ([]models.TimeSlot, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	booked, err := s.ledger.BookedTimes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("reading booked times: %w", err)
	}

	times := s.template.Times()
	slots := make([]models.TimeSlot, 0, len(times))
	for _, clock := range times {
		slots = append(slots, models.TimeSlot{
			ID:              models.SlotID(date, clock),
			Date:            date,
			Time:            clock,
			DurationMinutes: s.template.DurationMinutes,
			Available:       !booked[clock],
		})
	}
	return slots, nil
}

// AvailableSlotsForDate returns the free slots on date, order preserved.
func (s *Store) AvailableSlotsForDate(ctx context.Context, date string) ([]models.TimeSlot, error) {
	slots, err := s.SlotsForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	available := slots[:0]
	for _, slot := range slots {
		if slot.Available {
			available = append(available, slot)
		}
	}
	return available, nil
}

// SlotsForWeek returns the slots for the seven days starting at start,
// in day-then-time order.
func (s *Store) SlotsForWeek(ctx context.Context, start string) ([]models.TimeSlot, error) {
	day, err := models.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", start, err)
	}

	week := make([]models.TimeSlot, 0, DaysPerWeek*len(s.template.Hours))
	for i := 0; i < DaysPerWeek; i++ {
		slots, err := s.SlotsForDate(ctx, models.FormatDate(day.AddDate(0, 0, i)))
		if err != nil {
			return nil, err
		}
		week = append(week, slots...)
	}
	return week, nil
}

// Slot returns the slot at (date, clock), or ErrUnknownSlot when clock is
// not in the template.
func (s *Store) Slot(ctx context.Context, date, clock string) (*models.TimeSlot, error) {
	if !s.template.Contains(clock) {
		return nil, ErrUnknownSlot
	}

	slots, err := s.SlotsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].Time == clock {
			return &slots[i], nil
		}
	}
	return nil, ErrUnknownSlot
}

// Book reserves slot and returns the committed booking. The reservation is
// atomic in the ledger; losing a race yields ErrSlotTaken and no booking.
func (s *Store) Book(ctx context.Context, slot models.TimeSlot, title string) (*models.Booking, error) {
	if !s.template.Contains(slot.Time) {
		return nil, ErrUnknownSlot
	}
	if _, err := models.ParseDate(slot.Date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", slot.Date, err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = s.defaultTitle
	}

	duration := slot.DurationMinutes
	if duration <= 0 {
		duration = s.template.DurationMinutes
	}

	b := &models.Booking{
		Date:            slot.Date,
		Time:            slot.Time,
		DurationMinutes: duration,
		Title:           title,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.ledger.Reserve(ctx, b); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("reserving slot: %w", err)
	}
	return b, nil
}

// AllBookings returns the ledger in append order.
func (s *Store) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.ledger.List(ctx)
}

// Booking returns a booking by id, or nil if none exists.
func (s *Store) Booking(ctx context.Context, id string) (*models.Booking, error) {
	return s.ledger.GetByID(ctx, id)
}

// Cancel releases a confirmed booking's slot.
func (s *Store) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	return s.ledger.Cancel(ctx, id)
}
