package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/datetime"
	"github.com/booking-assistant/backend/internal/intent"
	"github.com/booking-assistant/backend/internal/response"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// SlotBook is the availability surface the engine negotiates against.
type SlotBook interface {
	Slot(ctx context.Context, date, clock string) (*models.TimeSlot, error)
	AvailableSlotsForDate(ctx context.Context, date string) ([]models.TimeSlot, error)
	SlotsForWeek(ctx context.Context, start string) ([]models.TimeSlot, error)
	Book(ctx context.Context, slot models.TimeSlot, title string) (*models.Booking, error)
}

var _ SlotBook = (*availability.Store)(nil)

// Turn is the outcome of one inbound event: the agent's messages, in
// order, and the session state after the event. Messages may be empty.
type Turn struct {
	Messages []response.Message `json:"messages"`
	State    State              `json:"state"`
}

// Engine sequences classification, extraction and availability into a
// multi-turn negotiation. Events for one session are processed one at a
// time; different sessions never share state.
type Engine struct {
	sessions   SessionStore
	slots      SlotBook
	classifier intent.Classifier
	extractor  *datetime.Extractor
	composer   *response.Composer
	logger     *zap.Logger
	now        func() time.Time

	locks keyedMutex
}

// NewEngine creates a dialogue engine. A nil classifier uses the default
// keyword rules; a nil logger discards output.
func NewEngine(
	sessions SessionStore,
	slots SlotBook,
	classifier intent.Classifier,
	extractor *datetime.Extractor,
	composer *response.Composer,
	logger *zap.Logger,
) *Engine {
	if classifier == nil {
		classifier = intent.NewKeywordClassifier(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		sessions:   sessions,
		slots:      slots,
		classifier: classifier,
		extractor:  extractor,
		composer:   composer,
		logger:     logger,
		now:        time.Now,
		locks:      keyedMutex{locks: make(map[string]*refLock)},
	}
}

// SetClock overrides the clock used for session activity timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Composer returns the message composer used by the engine.
func (e *Engine) Composer() *response.Composer {
	return e.composer
}

// HandleUtterance processes free-form text from the user.
func (e *Engine) HandleUtterance(ctx context.Context, sessionID, text string) (Turn, error) {
	return e.apply(ctx, sessionID, func(st *State) ([]response.Message, error) {
		switch e.classifier.Classify(text) {
		case intent.Booking:
			return e.handleBooking(ctx, st, text)
		case intent.AvailabilityCheck:
			return e.handleAvailability(ctx, text)
		}

		switch st.Intent {
		case PhaseConfirming:
			return e.handleReply(ctx, st, intent.ClassifyReply(text))
		case PhaseIdle:
			return []response.Message{e.composer.Greeting()}, nil
		}
		return nil, nil
	})
}

// SelectSlot handles the user picking a slot from a list. A slot outside
// the template or an unparseable date is ignored.
func (e *Engine) SelectSlot(ctx context.Context, sessionID, date, clock string) (Turn, error) {
	return e.apply(ctx, sessionID, func(st *State) ([]response.Message, error) {
		if _, err := models.ParseDate(date); err != nil {
			return nil, nil
		}

		slot, err := e.slots.Slot(ctx, date, clock)
		if errors.Is(err, availability.ErrUnknownSlot) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if !slot.Available {
			return e.slotTaken(ctx, st, date)
		}

		st.confirm(*slot)
		return []response.Message{e.composer.SelectionPrompt(*slot)}, nil
	})
}

// Confirm handles a yes/no button press. Outside the confirming phase the
// signal is ignored.
func (e *Engine) Confirm(ctx context.Context, sessionID string, confirmed bool) (Turn, error) {
	return e.apply(ctx, sessionID, func(st *State) ([]response.Message, error) {
		if st.Intent != PhaseConfirming {
			return nil, nil
		}
		reply := intent.ReplyNegative
		if confirmed {
			reply = intent.ReplyAffirmative
		}
		return e.handleReply(ctx, st, reply)
	})
}

// State returns the current state of a session.
func (e *Engine) State(ctx context.Context, sessionID string) (State, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Reset forgets a session.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	return e.sessions.Delete(ctx, sessionID)
}

// ActiveSessions returns the number of sessions the store still holds.
func (e *Engine) ActiveSessions(ctx context.Context) (int, error) {
	ids, err := e.sessions.IDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ExpireStale reverts sessions that have sat in the confirming phase for
// longer than maxAge back to booking, releasing their selected slot. It
// returns the ids of the sessions it reverted. A session that cannot be
// loaded or saved is skipped; its error is joined into the returned error
// and the sweep carries on with the rest.
func (e *Engine) ExpireStale(ctx context.Context, maxAge time.Duration) ([]string, error) {
	ids, err := e.sessions.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var (
		expired []string
		errs    []error
	)
	for _, id := range ids {
		ok, err := e.expireOne(ctx, id, maxAge)
		if err != nil {
			e.logger.Warn("skipping session in expiry sweep", zap.String("session", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
			continue
		}
		if ok {
			expired = append(expired, id)
		}
	}
	return expired, errors.Join(errs...)
}

func (e *Engine) expireOne(ctx context.Context, id string, maxAge time.Duration) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	st, err := e.sessions.Load(ctx, id)
	if err != nil {
		return false, err
	}

	now := e.now()
	if st.Intent != PhaseConfirming || now.Sub(st.UpdatedAt) <= maxAge {
		return false, nil
	}

	st.backToBooking()
	st.UpdatedAt = now
	if err := e.sessions.Save(ctx, id, st); err != nil {
		return false, err
	}

	e.logger.Info("expired stale confirmation", zap.String("session", id))
	return true, nil
}

// apply runs fn against a copy of the session state under the session lock.
// The copy is persisted only if fn succeeds, so a failed turn leaves the
// session exactly as it was.
func (e *Engine) apply(ctx context.Context, sessionID string, fn func(st *State) ([]response.Message, error)) (Turn, error) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	current, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return Turn{}, fmt.Errorf("loading session: %w", err)
	}

	next := current
	msgs, err := fn(&next)
	if err != nil {
		e.logger.Error("dialogue turn failed",
			zap.String("session", sessionID),
			zap.Error(err),
		)
		return Turn{State: current}, err
	}

	if next.Intent != current.Intent {
		e.logger.Debug("dialogue transition",
			zap.String("session", sessionID),
			zap.String("from", string(current.Intent)),
			zap.String("to", string(next.Intent)),
		)
	}

	next.UpdatedAt = e.now()
	if err := e.sessions.Save(ctx, sessionID, next); err != nil {
		return Turn{State: current}, fmt.Errorf("saving session: %w", err)
	}

	if msgs == nil {
		msgs = []response.Message{}
	}
	return Turn{Messages: msgs, State: next}, nil
}

func (e *Engine) handleBooking(ctx context.Context, st *State, text string) ([]response.Message, error) {
	st.Intent = PhaseBooking
	st.Step = 1
	st.SelectedSlot = nil

	found := e.extractor.Extract(text)
	if found.HasDate() {
		st.PreferredDate = found.Date
	}
	if found.HasTime() {
		st.PreferredTime = found.Time
	}

	date, clock := st.PreferredDate, st.PreferredTime
	switch {
	case date != "" && clock != "":
		slot, err := e.slots.Slot(ctx, date, clock)
		if err != nil && !errors.Is(err, availability.ErrUnknownSlot) {
			return nil, err
		}
		if slot != nil && slot.Available {
			st.confirm(*slot)
			return []response.Message{e.composer.ConfirmPrompt(*slot)}, nil
		}

		open, err := e.slots.AvailableSlotsForDate(ctx, date)
		if err != nil {
			return nil, err
		}
		return e.composer.SlotUnavailable(date, open), nil

	case date != "":
		open, err := e.slots.AvailableSlotsForDate(ctx, date)
		if err != nil {
			return nil, err
		}
		return e.composer.DateOffer(date, open), nil

	default:
		week, err := e.slots.SlotsForWeek(ctx, e.extractor.Today())
		if err != nil {
			return nil, err
		}
		return e.composer.WeekPrompt(week), nil
	}
}

func (e *Engine) handleAvailability(ctx context.Context, text string) ([]response.Message, error) {
	date := e.extractor.ExtractDate(text)
	if date == "" {
		week, err := e.slots.SlotsForWeek(ctx, e.extractor.Today())
		if err != nil {
			return nil, err
		}
		return []response.Message{e.composer.WeekAvailability(week)}, nil
	}

	open, err := e.slots.AvailableSlotsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return []response.Message{e.composer.NoAvailability(date)}, nil
	}
	return e.composer.Openings(date, open), nil
}

func (e *Engine) handleReply(ctx context.Context, st *State, reply intent.Reply) ([]response.Message, error) {
	switch reply {
	case intent.ReplyAffirmative:
		if st.SelectedSlot == nil {
			return nil, nil
		}
		slot := *st.SelectedSlot

		b, err := e.slots.Book(ctx, slot, "")
		if errors.Is(err, availability.ErrSlotTaken) {
			e.logger.Warn("slot taken before commit",
				zap.String("date", slot.Date),
				zap.String("time", slot.Time),
			)
			return e.slotTaken(ctx, st, slot.Date)
		}
		if err != nil {
			return nil, err
		}

		e.logger.Info("booking committed",
			zap.String("booking_id", b.ID),
			zap.String("date", b.Date),
			zap.String("time", b.Time),
		)
		st.reset()
		return e.composer.Booked(*b), nil

	case intent.ReplyNegative:
		st.backToBooking()
		return []response.Message{e.composer.Declined()}, nil
	}
	return nil, nil
}

func (e *Engine) slotTaken(ctx context.Context, st *State, date string) ([]response.Message, error) {
	open, err := e.slots.AvailableSlotsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	st.backToBooking()
	return e.composer.SlotTaken(date, open), nil
}

// keyedMutex serializes work per key and frees idle keys.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
