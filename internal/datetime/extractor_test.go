package datetime

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// Wednesday, March 13 2024.
var wednesday = time.Date(2024, 3, 13, 10, 30, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	e := NewExtractor(time.UTC)
	e.SetClock(func() time.Time { return wednesday })
	return e
}

func TestExtractDate(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		text string
		want string
	}{
		{"Book something today", "2024-03-13"},
		{"How about TOMORROW?", "2024-03-14"},
		{"Do you have any free time this Friday?", "2024-03-15"},
		{"wednesday works", "2024-03-13"},
		{"monday please", "2024-03-18"},
		{"sometime next week", "2024-03-20"},
		{"on 3/20/2024", "2024-03-20"},
		{"on 12-5-2024", "2024-12-05"},
		{"on 7/4/25", "2025-07-04"},
		{"friday or monday", "2024-03-15"},
		{"monday or friday", "2024-03-18"},
		{"tomorrow or friday", "2024-03-14"},
		{"friday next week", "2024-03-15"},
		{"on 2/30/2024", ""},
		{"on 13/1/2024", ""},
		{"I'd like to talk", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ExtractDate(tt.text))
		})
	}
}

func TestExtractTime(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		text string
		want string
	}{
		{"at 2pm", "14:00"},
		{"at 2:30 PM", "14:30"},
		{"at 12pm", "12:00"},
		{"at 12am", "00:00"},
		{"at 9 am", "09:00"},
		{"at 11:15am", "11:15"},
		{"at 15:00", "15:00"},
		{"at 10", "10:00"},
		{"tomorrow afternoon", "14:00"},
		{"Monday morning", "10:00"},
		{"morning or afternoon", "14:00"},
		{"on 3/20/2024", ""},
		{"on 3/20/2024 at 4pm", "16:00"},
		{"at 25:00 or 3pm", "15:00"},
		{"at 13pm", ""},
		{"the 2nd option", ""},
		{"sometime soon", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ExtractTime(tt.text))
		})
	}
}

func TestExtract_AxesAreIndependent(t *testing.T) {
	e := newTestExtractor()

	both := e.Extract("Book a meeting for tomorrow afternoon")
	assert.Equal(t, Result{Date: "2024-03-14", Time: "14:00"}, both)
	assert.True(t, both.HasDate())
	assert.True(t, both.HasTime())

	dateOnly := e.Extract("anything on friday?")
	assert.True(t, dateOnly.HasDate())
	assert.False(t, dateOnly.HasTime())

	timeOnly := e.Extract("3pm works")
	assert.False(t, timeOnly.HasDate())
	assert.Equal(t, "15:00", timeOnly.Time)

	neither := e.Extract("I want to schedule a call")
	assert.Equal(t, Result{}, neither)
}

func TestExtractDate_RoundTripsThroughNumericForm(t *testing.T) {
	e := newTestExtractor()

	for _, text := range []string{"today", "tomorrow", "saturday", "next week", "sunday"} {
		resolved := e.ExtractDate(text)
		require.NotEmpty(t, resolved, text)

		d, err := models.ParseDate(resolved)
		require.NoError(t, err)

		slashed := fmt.Sprintf("%d/%d/%d", int(d.Month()), d.Day(), d.Year())
		dashed := fmt.Sprintf("%d-%d-%d", int(d.Month()), d.Day(), d.Year())
		assert.Equal(t, resolved, e.ExtractDate(slashed), slashed)
		assert.Equal(t, resolved, e.ExtractDate(dashed), dashed)
	}
}

func TestExtractDate_UsesConfiguredLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	e := NewExtractor(tokyo)
	// 20:00 UTC on the 13th is already the 14th in Tokyo.
	e.SetClock(func() time.Time { return time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC) })

	assert.Equal(t, "2024-03-14", e.Today())
	assert.Equal(t, "2024-03-15", e.ExtractDate("tomorrow"))
}
