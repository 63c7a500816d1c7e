// Package assistant ties the dialogue engine to everything that happens
// after a turn: calendar publication, calendar warnings and real-time
// delivery to the session's sockets.
package assistant

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/calendar"
	"github.com/booking-assistant/backend/internal/dialogue"
	"github.com/booking-assistant/backend/internal/response"
	"github.com/booking-assistant/backend/internal/storage/models"
	"github.com/booking-assistant/backend/internal/websocket"
)

// Publisher sends committed bookings to the remote calendar.
type Publisher interface {
	Publish(ctx context.Context, bookingID string) (calendar.Result, error)
}

// Notifier delivers events to connected clients.
type Notifier interface {
	SendChatMessages(sessionID string, messages []response.Message, state dialogue.State)
	SendSessionExpired(sessionID string)
	SendCalendarSyncFailed(sessionID, bookingID string, err error)
	BroadcastBookingCreated(booking models.Booking)
	BroadcastBookingCancelled(booking models.Booking)
}

// Bookings is the ledger surface the service exposes directly.
type Bookings interface {
	Cancel(ctx context.Context, id string) (*models.Booking, error)
}

var (
	_ Publisher = (*calendar.Publisher)(nil)
	_ Notifier  = (*websocket.EventBroadcaster)(nil)
	_ Bookings  = (*availability.Store)(nil)
)

// Session is a dialogue's current state together with the opening message
// a client shows before the first turn.
type Session struct {
	State   dialogue.State   `json:"state"`
	Welcome response.Message `json:"welcome"`
}

// Service runs dialogue turns and their side effects.
type Service struct {
	engine    *dialogue.Engine
	bookings  Bookings
	publisher Publisher
	notifier  Notifier
	logger    *zap.Logger
}

// NewService creates a service. A nil publisher disables calendar
// publication; a nil notifier disables real-time delivery.
func NewService(engine *dialogue.Engine, bookings Bookings, publisher Publisher, notifier Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:    engine,
		bookings:  bookings,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

// Say handles free-form text from a session.
func (s *Service) Say(ctx context.Context, sessionID, text string) (dialogue.Turn, error) {
	turn, err := s.engine.HandleUtterance(ctx, sessionID, text)
	return s.finish(ctx, sessionID, turn, err)
}

// Select handles a direct slot pick.
func (s *Service) Select(ctx context.Context, sessionID, date, clock string) (dialogue.Turn, error) {
	turn, err := s.engine.SelectSlot(ctx, sessionID, date, clock)
	return s.finish(ctx, sessionID, turn, err)
}

// Confirm handles a yes/no button press.
func (s *Service) Confirm(ctx context.Context, sessionID string, confirmed bool) (dialogue.Turn, error) {
	turn, err := s.engine.Confirm(ctx, sessionID, confirmed)
	return s.finish(ctx, sessionID, turn, err)
}

// Session returns a session's state and the welcome message.
func (s *Service) Session(ctx context.Context, sessionID string) (Session, error) {
	st, err := s.engine.State(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	return Session{State: st, Welcome: s.engine.Composer().Welcome()}, nil
}

// Reset forgets a session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.engine.Reset(ctx, sessionID)
}

// CancelBooking cancels a confirmed booking and tells every client the
// slot is free again.
func (s *Service) CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking cancelled",
		zap.String("booking_id", b.ID),
		zap.String("slot", b.SlotKey()),
	)
	s.notifier.BroadcastBookingCancelled(*b)
	return b, nil
}

// SessionExpired is called when the sweeper reverted a session's pending
// confirmation.
func (s *Service) SessionExpired(sessionID string) {
	s.notifier.SendSessionExpired(sessionID)
}

// finish publishes any booking the turn committed, appends calendar
// warnings and pushes the turn to the session's sockets.
func (s *Service) finish(ctx context.Context, sessionID string, turn dialogue.Turn, err error) (dialogue.Turn, error) {
	if err != nil {
		return turn, err
	}

	var extra []response.Message
	for _, msg := range turn.Messages {
		if !msg.RequestsCalendarEvent() {
			continue
		}
		b := *msg.Data.Booking
		s.notifier.BroadcastBookingCreated(b)
		if warning, ok := s.publish(ctx, sessionID, b); ok {
			extra = append(extra, warning)
		}
	}
	turn.Messages = append(turn.Messages, extra...)

	s.notifier.SendChatMessages(sessionID, turn.Messages, turn.State)
	return turn, nil
}

// publish returns the message to append after the booking summary, if any.
func (s *Service) publish(ctx context.Context, sessionID string, b models.Booking) (response.Message, bool) {
	if s.publisher == nil {
		return response.Message{}, false
	}
	composer := s.engine.Composer()

	res, err := s.publisher.Publish(ctx, b.ID)
	switch {
	case errors.Is(err, calendar.ErrAlreadyPublished):
		return response.Message{}, false
	case err != nil:
		s.logger.Error("calendar publication",
			zap.String("session", sessionID),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
		s.notifier.SendCalendarSyncFailed(sessionID, b.ID, err)
		return composer.CalendarFailed(b), true
	}

	switch res.Outcome {
	case calendar.OutcomeFailed:
		s.notifier.SendCalendarSyncFailed(sessionID, b.ID, res.Err)
		return composer.CalendarFailed(b), true
	case calendar.OutcomeSkipped:
		return composer.CalendarNotConnected(), true
	}
	return response.Message{}, false
}

type nopNotifier struct{}

func (nopNotifier) SendChatMessages(string, []response.Message, dialogue.State) {}
func (nopNotifier) SendSessionExpired(string)                                   {}
func (nopNotifier) SendCalendarSyncFailed(string, string, error)                {}
func (nopNotifier) BroadcastBookingCreated(models.Booking)                      {}
func (nopNotifier) BroadcastBookingCancelled(models.Booking)                    {}
