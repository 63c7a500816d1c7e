package models

import (
	"time"
)

// Booking is a committed entry in the booking ledger.
// JSON names follow the chat client's wire contract.
type Booking struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"` // YYYY-MM-DD
	Time            string    `json:"time"` // HH:MM, 24-hour
	DurationMinutes int       `json:"duration"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`

	// CalendarKey is the idempotency key sent with the remote calendar event.
	CalendarKey     string     `json:"calendarKey"`
	CalendarStatus  string     `json:"calendarStatus"`
	CalendarEventID *string    `json:"calendarEventId,omitempty"`
	CalendarError   *string    `json:"calendarError,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
}

// Booking status constants
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusPending   = "pending"
	BookingStatusCancelled = "cancelled"
)

// Calendar publication status constants
const (
	CalendarStatusPending = "pending" // not yet attempted
	CalendarStatusSending = "sending" // claimed by a publisher
	CalendarStatusCreated = "created" // remote event exists
	CalendarStatusFailed  = "failed"  // attempt failed, booking stands
	CalendarStatusSkipped = "skipped" // no credential at commit time
)

// SlotKey returns the (date, time) identity shared by a booking and its slot.
func (b *Booking) SlotKey() string {
	return SlotID(b.Date, b.Time)
}

// Start returns the booking start in loc.
func (b *Booking) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, b.Date+" "+b.Time, loc)
}

// End returns Start plus the booking duration.
func (b *Booking) End(loc *time.Location) (time.Time, error) {
	start, err := b.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(b.DurationMinutes) * time.Minute), nil
}

// IsConfirmed returns true if the booking currently holds its slot.
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}
