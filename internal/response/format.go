package response

import (
	"time"

	"github.com/booking-assistant/backend/internal/storage/models"
)

const (
	humanDateLayout = "Monday, January 2, 2006"
	humanTimeLayout = "3:04 PM"
	isoLayout       = "2006-01-02T15:04:05.000Z07:00"
)

// FormatDate renders a ledger date as "Friday, March 15, 2024".
// Unparseable input is returned unchanged.
func FormatDate(date string) string {
	t, err := models.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format(humanDateLayout)
}

// FormatTime renders HH:MM on a 12-hour clock, e.g. "2:00 PM".
// Unparseable input is returned unchanged.
func FormatTime(clock string) string {
	t, err := time.Parse(models.TimeLayout, clock)
	if err != nil {
		return clock
	}
	return t.Format(humanTimeLayout)
}

// FormatDateTime renders a slot start as "Friday, March 15, 2024 at 2:00 PM".
func FormatDateTime(date, clock string) string {
	return FormatDate(date) + " at " + FormatTime(clock)
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
