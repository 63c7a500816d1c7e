// Package datetime resolves natural-language date and time phrases into
// absolute ledger dates (YYYY-MM-DD) and clock times (HH:MM).
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/booking-assistant/backend/internal/storage/models"
)

var (
	numericDatePattern = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
	numericTimePattern = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Result holds the independently optional date and time axes.
type Result struct {
	Date string // YYYY-MM-DD, empty when absent
	Time string // HH:MM, empty when absent
}

func (r Result) HasDate() bool { return r.Date != "" }
func (r Result) HasTime() bool { return r.Time != "" }

// Extractor resolves relative phrases against a clock in a fixed location.
type Extractor struct {
	loc *time.Location
	now func() time.Time
}

// NewExtractor creates an extractor that resolves "today" in loc.
// A nil loc means time.Local.
func NewExtractor(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{loc: loc, now: time.Now}
}

// SetClock overrides the clock used to resolve relative dates.
func (e *Extractor) SetClock(now func() time.Time) {
	e.now = now
}

// Today returns the current date in the extractor's location.
func (e *Extractor) Today() string {
	return models.FormatDate(e.today())
}

// Extract evaluates both axes on text.
func (e *Extractor) Extract(text string) Result {
	return Result{
		Date: e.ExtractDate(text),
		Time: e.ExtractTime(text),
	}
}

// ExtractDate resolves the date axis. The first rule that matches wins:
// today, tomorrow, a weekday name, "next week", then M/D/Y or M-D-Y.
func (e *Extractor) ExtractDate(text string) string {
	lower := strings.ToLower(text)
	today := e.today()

	switch {
	case strings.Contains(lower, "today"):
		return models.FormatDate(today)
	case strings.Contains(lower, "tomorrow"):
		return models.FormatDate(today.AddDate(0, 0, 1))
	}

	if wd, ok := firstWeekday(lower); ok {
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		return models.FormatDate(today.AddDate(0, 0, ahead))
	}

	if strings.Contains(lower, "next week") {
		return models.FormatDate(today.AddDate(0, 0, 7))
	}

	if m := numericDatePattern.FindStringSubmatch(lower); m != nil {
		if date, ok := numericDate(m[1], m[2], m[3]); ok {
			return date
		}
	}

	return ""
}

// ExtractTime resolves the time axis: an explicit H[:MM][am|pm], else
// "afternoon" (14:00), else "morning" (10:00).
func (e *Extractor) ExtractTime(text string) string {
	lower := strings.ToLower(text)

	// Numeric dates would otherwise read as times ("3/15/24" -> 03:00).
	scrubbed := numericDatePattern.ReplaceAllStringFunc(lower, func(s string) string {
		return strings.Repeat(" ", len(s))
	})

	for _, m := range numericTimePattern.FindAllStringSubmatch(scrubbed, -1) {
		if clock, ok := numericTime(m[1], m[2], m[3]); ok {
			return clock
		}
	}

	switch {
	case strings.Contains(lower, "afternoon"):
		return "14:00"
	case strings.Contains(lower, "morning"):
		return "10:00"
	}
	return ""
}

func (e *Extractor) today() time.Time {
	n := e.now().In(e.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, e.loc)
}

// firstWeekday returns the weekday whose name appears earliest in text.
func firstWeekday(text string) (time.Weekday, bool) {
	best := -1
	var found time.Weekday
	for name, wd := range weekdayNames {
		if i := strings.Index(text, name); i >= 0 && (best < 0 || i < best) {
			best, found = i, wd
		}
	}
	return found, best >= 0
}

func numericDate(month, day, year string) (string, bool) {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	y, _ := strconv.Atoi(year)
	if len(year) == 2 {
		y += 2000
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return models.FormatDate(t), true
}

func numericTime(hours, minutes, period string) (string, bool) {
	h, _ := strconv.Atoi(hours)
	mins := 0
	if minutes != "" {
		mins, _ = strconv.Atoi(minutes)
	}
	if mins > 59 {
		return "", false
	}

	switch period {
	case "pm":
		if h < 1 || h > 12 {
			return "", false
		}
		if h != 12 {
			h += 12
		}
	case "am":
		if h < 1 || h > 12 {
			return "", false
		}
		if h == 12 {
			h = 0
		}
	default:
		if h > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", h, mins), true
}
