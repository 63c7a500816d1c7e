package calendar

import (
	"strings"
	"time"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// EventDescription is attached to every published booking.
const EventDescription = "Appointment booked via AI Booking Assistant"

// Event is the calendar-event payload.
type Event struct {
	// ID is a client-chosen event id; the API rejects a second insert
	// with the same id, which makes retries safe.
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// EventTime is an ISO 8601 instant plus the zone it should display in.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// EventFromBooking builds the event for b, interpreting the booking's
// naive date and time in loc.
func EventFromBooking(b models.Booking, loc *time.Location) (Event, error) {
	if loc == nil {
		loc = time.Local
	}

	start, err := b.Start(loc)
	if err != nil {
		return Event{}, err
	}
	end := start.Add(time.Duration(b.DurationMinutes) * time.Minute)

	summary := b.Title
	if summary == "" {
		summary = "Meeting"
	}

	// "Local" is not a zone name the API understands.
	zone := loc.String()
	if zone == "Local" {
		start, end, zone = start.UTC(), end.UTC(), "UTC"
	}

	return Event{
		ID:          EventID(b.CalendarKey),
		Summary:     summary,
		Description: EventDescription,
		Start:       EventTime{DateTime: start.Format(time.RFC3339), TimeZone: zone},
		End:         EventTime{DateTime: end.Format(time.RFC3339), TimeZone: zone},
	}, nil
}

// EventID derives a remote event id from a booking's calendar key. Event
// ids are limited to base32hex characters, which a hyphen-free lowercase
// UUID satisfies.
func EventID(calendarKey string) string {
	return strings.ToLower(strings.ReplaceAll(calendarKey, "-", ""))
}
