package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// ProductID identifies exported calendars.
const ProductID = "-//Booking Assistant//Bookings//EN"

// ExportICS writes the confirmed bookings as an iCalendar feed. Times are
// written in UTC after reading each booking in loc.
func ExportICS(w io.Writer, bookings []models.Booking, loc *time.Location, stamp time.Time) error {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, b := range bookings {
		if !b.IsConfirmed() {
			continue
		}

		start, err := b.Start(loc)
		if err != nil {
			return fmt.Errorf("booking %s: %w", b.ID, err)
		}
		end := start.Add(time.Duration(b.DurationMinutes) * time.Minute)

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, b.CalendarKey+"@booking-assistant")
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		event.Props.SetText(ical.PropSummary, b.Title)
		event.Props.SetText(ical.PropDescription, EventDescription)
		event.Props.SetText(ical.PropStatus, "CONFIRMED")

		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}
