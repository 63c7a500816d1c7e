package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/storage/models"
)

var (
	// ErrAlreadyPublished is returned when a booking's calendar event was
	// already attempted. The collaborator is not called again.
	ErrAlreadyPublished = errors.New("booking already published to calendar")

	// ErrNotAuthenticated is returned by calendar lookups that need a
	// signed-in account when there is none.
	ErrNotAuthenticated = errors.New("no calendar account signed in")
)

// Outcome is the result of one publication attempt.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped" // nobody signed in
	OutcomeFailed  Outcome = "failed"  // booking stands, event missing
)

// TokenSource supplies the access credential on demand.
type TokenSource interface {
	AccessToken(ctx context.Context) (token string, authenticated bool, err error)
}

// EventCreator performs the remote create.
type EventCreator interface {
	CreateEvent(ctx context.Context, token string, event Event) (*CreatedEvent, error)
}

// SyncLedger is the part of the booking ledger that tracks publication.
type SyncLedger interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	ClaimCalendarSync(ctx context.Context, id string) (bool, error)
	RecordCalendarSync(ctx context.Context, id, status string, eventID, syncError *string) error
}

var _ SyncLedger = (*storage.BookingRepository)(nil)
var _ EventCreator = (*Client)(nil)

// Result describes what Publish did.
type Result struct {
	Outcome Outcome
	EventID string
	Err     error // remote failure, set when Outcome is OutcomeFailed
}

// Publisher creates at most one remote event per committed booking. The
// guard lives in the ledger: a booking's calendar status moves from
// pending to sending exactly once, so redelivery of the same booking
// never reaches the collaborator twice.
type Publisher struct {
	ledger  SyncLedger
	tokens  TokenSource
	creator EventCreator
	loc     *time.Location
	logger  *zap.Logger
}

// NewPublisher creates a publisher. Booking times are read in loc.
func NewPublisher(ledger SyncLedger, tokens TokenSource, creator EventCreator, loc *time.Location, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		ledger:  ledger,
		tokens:  tokens,
		creator: creator,
		loc:     loc,
		logger:  logger,
	}
}

// Publish sends the booking with the given id to the remote calendar.
// Remote failures are reported in the Result, not as an error; the
// returned error covers ledger problems and ErrAlreadyPublished.
func (p *Publisher) Publish(ctx context.Context, bookingID string) (Result, error) {
	claimed, err := p.ledger.ClaimCalendarSync(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	if !claimed {
		return Result{}, ErrAlreadyPublished
	}

	// The claim is taken; the outcome must be recorded even if the
	// caller goes away.
	recordCtx := context.WithoutCancel(ctx)

	b, err := p.ledger.GetByID(ctx, bookingID)
	if err != nil {
		return p.fail(recordCtx, bookingID, err)
	}
	if b == nil {
		return Result{}, storage.ErrNotFound
	}

	token, authenticated, err := p.tokens.AccessToken(ctx)
	if err != nil {
		return p.fail(recordCtx, bookingID, fmt.Errorf("reading credential: %w", err))
	}
	if !authenticated {
		if err := p.ledger.RecordCalendarSync(recordCtx, bookingID, models.CalendarStatusSkipped, nil, nil); err != nil {
			return Result{}, err
		}
		p.logger.Info("calendar publication skipped, not signed in", zap.String("booking_id", bookingID))
		return Result{Outcome: OutcomeSkipped}, nil
	}

	event, err := EventFromBooking(*b, p.loc)
	if err != nil {
		return p.fail(recordCtx, bookingID, fmt.Errorf("building event: %w", err))
	}

	created, err := p.creator.CreateEvent(ctx, token, event)
	eventID := event.ID
	switch {
	case errors.Is(err, ErrEventExists):
		// A previous attempt got through before we could record it.
	case err != nil:
		return p.fail(recordCtx, bookingID, err)
	case created != nil && created.ID != "":
		eventID = created.ID
	}

	if err := p.ledger.RecordCalendarSync(recordCtx, bookingID, models.CalendarStatusCreated, &eventID, nil); err != nil {
		return Result{}, err
	}

	p.logger.Info("calendar event created",
		zap.String("booking_id", bookingID),
		zap.String("event_id", eventID),
	)
	return Result{Outcome: OutcomeCreated, EventID: eventID}, nil
}

func (p *Publisher) fail(ctx context.Context, bookingID string, cause error) (Result, error) {
	msg := cause.Error()
	if err := p.ledger.RecordCalendarSync(ctx, bookingID, models.CalendarStatusFailed, nil, &msg); err != nil {
		return Result{}, err
	}

	p.logger.Warn("calendar publication failed",
		zap.String("booking_id", bookingID),
		zap.Error(cause),
	)
	return Result{Outcome: OutcomeFailed, Err: cause}, nil
}
