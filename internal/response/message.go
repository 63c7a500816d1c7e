// Package response builds the agent's outbound chat messages.
package response

import (
	"github.com/booking-assistant/backend/internal/storage/models"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// MessageType tells the client how to render a message's payload.
type MessageType string

const (
	TypeText           MessageType = "text"
	TypeBookingOptions MessageType = "booking-options"
	TypeCalendar       MessageType = "calendar"
	TypeConfirmation   MessageType = "confirmation"
)

// Message is one chat bubble.
type Message struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Sender    Sender      `json:"sender"`
	Timestamp string      `json:"timestamp"` // ISO 8601, UTC
	Type      MessageType `json:"type"`
	Data      *Payload    `json:"data,omitempty"`
}

// Payload carries the structured part of a message. Which fields are set
// depends on the message type:
//
//	booking-options  Slots, Date
//	calendar         Slots (week view)
//	confirmation     Slot
//	text             Booking and ShouldCreateCalendarEvent for a commit summary
//
// Slots is written whenever it is non-nil, so an empty offer still carries
// "slots":[].
type Payload struct {
	Slots                     []models.TimeSlot `json:"slots,omitzero"`
	Date                      string            `json:"date,omitempty"`
	Slot                      *models.TimeSlot  `json:"slot,omitempty"`
	Booking                   *models.Booking   `json:"booking,omitempty"`
	ShouldCreateCalendarEvent bool              `json:"shouldCreateCalendarEvent,omitempty"`
}

// RequestsCalendarEvent reports whether m asks for a remote calendar event.
func (m Message) RequestsCalendarEvent() bool {
	return m.Data != nil && m.Data.ShouldCreateCalendarEvent && m.Data.Booking != nil
}
