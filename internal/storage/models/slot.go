package models

import "time"

// Layouts for the naive local dates and times used by slots and bookings.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TimeSlot is a candidate appointment generated from the working-hour
// template. Available is computed against the ledger, never stored.
type TimeSlot struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration"`
	Available       bool   `json:"available"`
}

// SlotID builds the identity of the slot at (date, time).
func SlotID(date, clock string) string {
	return date + "-" + clock
}

// FormatDate renders t as a ledger date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a ledger date.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}
