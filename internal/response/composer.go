package response

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// Greetings is the candidate set for an idle, unclassified utterance.
var Greetings = []string{
	"Hi! I'm your scheduling assistant. How can I help you today?",
	"Hello! I'd be happy to help you book an appointment. What do you need?",
	"Hi there! Looking to schedule something? I'm here to help!",
}

// Acknowledgements is the candidate set sent when a booking commits.
var Acknowledgements = []string{
	"Great! I've booked that appointment for you.",
	"Perfect! Your meeting is confirmed.",
	"All set! I've added that to your calendar.",
}

// WelcomeText opens every new conversation.
const WelcomeText = "Hi! I'm your AI scheduling assistant. I can help you book appointments, " +
	"check availability, and manage your calendar. Just tell me what you need in natural " +
	"language - like 'Book a meeting for tomorrow afternoon' or 'Do you have any free time this Friday?'"

// Picker chooses an index in [0, n).
type Picker interface {
	Pick(n int) int
}

// RandomPicker picks uniformly at random.
type RandomPicker struct{}

func (RandomPicker) Pick(n int) int { return rand.IntN(n) }

// FixedPicker always picks the same index, clamped to the candidate set.
type FixedPicker int

func (p FixedPicker) Pick(n int) int {
	i := int(p)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// Composer builds agent messages for each dialogue decision.
type Composer struct {
	picker Picker
	now    func() time.Time
	newID  func() string
}

// NewComposer creates a composer. A nil picker picks at random.
func NewComposer(picker Picker) *Composer {
	if picker == nil {
		picker = RandomPicker{}
	}
	return &Composer{
		picker: picker,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SetClock overrides the clock used for message timestamps.
func (c *Composer) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Composer) message(kind MessageType, text string, data *Payload) Message {
	return Message{
		ID:        c.newID(),
		Text:      text,
		Sender:    SenderAgent,
		Timestamp: FormatTimestamp(c.now()),
		Type:      kind,
		Data:      data,
	}
}

func (c *Composer) pick(candidates []string) string {
	return candidates[c.picker.Pick(len(candidates))]
}

// User wraps an inbound utterance as a user message for transcripts.
func (c *Composer) User(text string) Message {
	m := c.message(TypeText, text, nil)
	m.Sender = SenderUser
	return m
}

func (c *Composer) Welcome() Message {
	return c.message(TypeText, WelcomeText, nil)
}

func (c *Composer) Greeting() Message {
	return c.message(TypeText, c.pick(Greetings), nil)
}

// ConfirmPrompt asks the user to confirm a slot resolved from their text.
func (c *Composer) ConfirmPrompt(slot models.TimeSlot) Message {
	text := fmt.Sprintf("Perfect! I can book you for %s. Shall I confirm this appointment?",
		FormatDateTime(slot.Date, slot.Time))
	return c.message(TypeConfirmation, text, &Payload{Slot: &slot})
}

// SelectionPrompt asks the user to confirm a slot they picked from a list.
func (c *Composer) SelectionPrompt(slot models.TimeSlot) Message {
	text := fmt.Sprintf("Great choice! I can book you for %s. Shall I confirm this appointment?",
		FormatDateTime(slot.Date, slot.Time))
	return c.message(TypeConfirmation, text, &Payload{Slot: &slot})
}

// SlotOptions lists the open slots on date.
func (c *Composer) SlotOptions(date string, slots []models.TimeSlot) Message {
	return c.message(TypeBookingOptions, "Available time slots:", &Payload{Slots: slotList(slots), Date: date})
}

// SlotUnavailable reports that the requested slot is booked and offers the
// rest of that day.
func (c *Composer) SlotUnavailable(date string, open []models.TimeSlot) []Message {
	return []Message{
		c.message(TypeText, "I'm sorry, but that time slot isn't available. Let me show you what's open that day:", nil),
		c.SlotOptions(date, open),
	}
}

// SlotTaken reports a reservation lost to a concurrent booking.
func (c *Composer) SlotTaken(date string, open []models.TimeSlot) []Message {
	return []Message{
		c.message(TypeText, "I'm sorry, someone else just took that slot. Please choose another:", nil),
		c.SlotOptions(date, open),
	}
}

// DateOffer answers a booking request that named a date but no time.
func (c *Composer) DateOffer(date string, open []models.TimeSlot) []Message {
	return []Message{
		c.message(TypeText, fmt.Sprintf("I can help you book something for %s. Here are the available time slots:", FormatDate(date)), nil),
		c.SlotOptions(date, open),
	}
}

// WeekPrompt answers a booking request with no date or time.
func (c *Composer) WeekPrompt(week []models.TimeSlot) []Message {
	return []Message{
		c.message(TypeText, "I'd be happy to help you schedule an appointment! When would you prefer to meet?", nil),
		c.message(TypeCalendar, "Here's what I have available this week:", &Payload{Slots: slotList(week)}),
	}
}

// Openings answers an availability check for a date with free slots.
func (c *Composer) Openings(date string, open []models.TimeSlot) []Message {
	return []Message{
		c.message(TypeText, fmt.Sprintf("Yes, I have several openings on %s:", FormatDate(date)), nil),
		c.SlotOptions(date, open),
	}
}

// NoAvailability answers an availability check for a fully booked date.
func (c *Composer) NoAvailability(date string) Message {
	return c.message(TypeText, fmt.Sprintf(
		"I'm sorry, but I don't have any availability on %s. Would you like to see other dates?", FormatDate(date)), nil)
}

// WeekAvailability answers an availability check with no resolvable date.
func (c *Composer) WeekAvailability(week []models.TimeSlot) Message {
	return c.message(TypeCalendar, "Let me show you my availability for this week:", &Payload{Slots: slotList(week)})
}

// Booked announces a committed booking: an acknowledgement followed by a
// summary that asks for the remote calendar event.
func (c *Composer) Booked(b models.Booking) []Message {
	summary := fmt.Sprintf("📅 **Appointment Confirmed**\n\n**Date:** %s\n**Time:** %s\n**Duration:** %d minutes\n\n"+
		"I'll add this to your Google Calendar now. Is there anything else I can help you with?",
		FormatDate(b.Date), FormatTime(b.Time), b.DurationMinutes)

	return []Message{
		c.message(TypeText, c.pick(Acknowledgements), nil),
		c.message(TypeText, summary, &Payload{Booking: &b, ShouldCreateCalendarEvent: true}),
	}
}

// Declined answers a "no" to a confirmation prompt.
func (c *Composer) Declined() Message {
	return c.message(TypeText, "No problem! Would you like to see other available times, or is there something else I can help you with?", nil)
}

// CalendarFailed warns that the booking stands but the remote event was not created.
func (c *Composer) CalendarFailed(b models.Booking) Message {
	return c.message(TypeText, fmt.Sprintf(
		"Your appointment on %s is booked locally, but I couldn't add it to your Google Calendar. Please add it to your calendar manually.",
		FormatDateTime(b.Date, b.Time)), nil)
}

// CalendarNotConnected notes that no calendar account is signed in.
func (c *Composer) CalendarNotConnected() Message {
	return c.message(TypeText, "Your appointment is booked. Sign in with Google to have bookings added to your calendar automatically.", nil)
}

func slotList(slots []models.TimeSlot) []models.TimeSlot {
	if slots == nil {
		return []models.TimeSlot{}
	}
	return slots
}
