package websocket

import (
	"encoding/json"
	"time"

	"github.com/booking-assistant/backend/internal/dialogue"
	"github.com/booking-assistant/backend/internal/response"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeChatMessages       MessageType = "chat.messages"
	TypeSessionExpired     MessageType = "session.expired"
	TypeBookingCreated     MessageType = "booking.created"
	TypeBookingCancelled   MessageType = "booking.cancelled"
	TypeCalendarSyncFailed MessageType = "calendar.sync_failed"

	// Client -> Server command types
	TypeChatUtterance  MessageType = "chat.utterance"
	TypeChatSelectSlot MessageType = "chat.select_slot"
	TypeChatConfirm    MessageType = "chat.confirm"
	TypePing           MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChatPayload is the payload for chat.messages events.
type ChatPayload struct {
	SessionID string             `json:"session_id"`
	Messages  []response.Message `json:"messages"`
	State     dialogue.State     `json:"state"`
}

// BookingPayload is the payload for booking.created and booking.cancelled events.
type BookingPayload struct {
	Booking models.Booking `json:"booking"`
}

// CalendarSyncPayload is the payload for calendar.sync_failed events.
type CalendarSyncPayload struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

// NotificationPayload is a user-facing notice, sent with session.expired.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

// UtterancePayload is the payload of a chat.utterance command.
type UtterancePayload struct {
	Text string `json:"text"`
}

// SelectSlotPayload is the payload of a chat.select_slot command.
type SelectSlotPayload struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ConfirmPayload is the payload of a chat.confirm command.
type ConfirmPayload struct {
	Confirmed bool `json:"confirmed"`
}
