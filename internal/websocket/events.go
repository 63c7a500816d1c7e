package websocket

import (
	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/dialogue"
	"github.com/booking-assistant/backend/internal/response"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// EventBroadcaster encodes events and hands them to the hub.
type EventBroadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, logger *zap.Logger) *EventBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBroadcaster{hub: hub, logger: logger}
}

// SendChatMessages pushes a session's new chat messages and its resulting state.
func (b *EventBroadcaster) SendChatMessages(sessionID string, messages []response.Message, state dialogue.State) {
	if len(messages) == 0 {
		return
	}
	b.toSession(sessionID, NewMessage(TypeChatMessages, ChatPayload{
		SessionID: sessionID,
		Messages:  messages,
		State:     state,
	}))
}

// SendSessionExpired tells a session's clients their conversation was reset.
func (b *EventBroadcaster) SendSessionExpired(sessionID string) {
	b.toSession(sessionID, NewMessage(TypeSessionExpired, NotificationPayload{
		Level:       "info",
		Title:       "Conversation reset",
		Message:     "Your conversation timed out. Let's start again.",
		Dismissible: true,
	}))
}

// SendCalendarSyncFailed tells a session that its booking did not reach the calendar.
func (b *EventBroadcaster) SendCalendarSyncFailed(sessionID, bookingID string, err error) {
	payload := CalendarSyncPayload{
		BookingID: bookingID,
		Status:    models.CalendarStatusFailed,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	b.toSession(sessionID, NewMessage(TypeCalendarSyncFailed, payload))
}

// BroadcastBookingCreated announces a new booking to every client.
func (b *EventBroadcaster) BroadcastBookingCreated(booking models.Booking) {
	b.broadcast(NewMessage(TypeBookingCreated, BookingPayload{Booking: booking}))
}

// BroadcastBookingCancelled announces a cancelled booking to every client.
func (b *EventBroadcaster) BroadcastBookingCancelled(booking models.Booking) {
	b.broadcast(NewMessage(TypeBookingCancelled, BookingPayload{Booking: booking}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encode websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}

func (b *EventBroadcaster) toSession(sessionID string, msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encode websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	b.hub.SendToSession(sessionID, data)
}
