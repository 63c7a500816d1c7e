package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-assistant/backend/internal/availability"
	"github.com/booking-assistant/backend/internal/datetime"
	"github.com/booking-assistant/backend/internal/response"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// Wednesday, March 13 2024; tomorrow is Thursday the 14th, Friday is the 15th.
var testNow = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

type fixture struct {
	engine *Engine
	store  *availability.Store
	ledger *availability.MemoryLedger
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: testNow}
	clock := func() time.Time { return f.now }

	f.ledger = availability.NewMemoryLedger()
	f.store = availability.NewStore(f.ledger, availability.DefaultTemplate(), "")

	extractor := datetime.NewExtractor(time.UTC)
	extractor.SetClock(clock)

	composer := response.NewComposer(nil)
	composer.SetClock(clock)

	f.engine = NewEngine(NewMemorySessionStore(0), f.store, nil, extractor, composer, nil)
	f.engine.SetClock(clock)
	return f
}

func (f *fixture) book(t *testing.T, date, clock string) {
	t.Helper()
	_, err := f.store.Book(context.Background(), models.TimeSlot{Date: date, Time: clock, DurationMinutes: 60}, "")
	require.NoError(t, err)
}

func (f *fixture) bookings(t *testing.T) []models.Booking {
	t.Helper()
	all, err := f.store.AllBookings(context.Background())
	require.NoError(t, err)
	return all
}

func TestEngine_BookingRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	assert.Equal(t, PhaseConfirming, turn.State.Intent)
	assert.Equal(t, 1, turn.State.Step)
	require.NotNil(t, turn.State.SelectedSlot)
	assert.Equal(t, "2024-03-14", turn.State.SelectedSlot.Date)
	assert.Equal(t, "14:00", turn.State.SelectedSlot.Time)

	require.Len(t, turn.Messages, 1)
	assert.Equal(t, response.TypeConfirmation, turn.Messages[0].Type)
	assert.Equal(t, "2024-03-14-14:00", turn.Messages[0].Data.Slot.ID)

	turn, err = f.engine.HandleUtterance(ctx, "s1", "yes")
	require.NoError(t, err)

	assert.Equal(t, NewState().Intent, turn.State.Intent)
	assert.Equal(t, 0, turn.State.Step)
	assert.Nil(t, turn.State.SelectedSlot)
	assert.Empty(t, turn.State.PreferredDate)

	require.Len(t, turn.Messages, 2)
	assert.Contains(t, response.Acknowledgements, turn.Messages[0].Text)

	summary := turn.Messages[1]
	assert.Equal(t, response.TypeText, summary.Type)
	require.NotNil(t, summary.Data)
	assert.True(t, summary.Data.ShouldCreateCalendarEvent)
	require.NotNil(t, summary.Data.Booking)
	assert.Equal(t, "2024-03-14", summary.Data.Booking.Date)
	assert.Equal(t, "14:00", summary.Data.Booking.Time)
	assert.Equal(t, 60, summary.Data.Booking.DurationMinutes)

	all := f.bookings(t)
	require.Len(t, all, 1)
	assert.Equal(t, summary.Data.Booking.ID, all[0].ID)
}

func TestEngine_DeclineReturnsToBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "no")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	assert.Nil(t, turn.State.SelectedSlot)
	require.Len(t, turn.Messages, 1)
	assert.Contains(t, turn.Messages[0].Text, "No problem!")
	assert.Empty(t, f.bookings(t))
}

func TestEngine_ConfirmingIgnoresUnrelatedText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	before, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "hmm")
	require.NoError(t, err)

	assert.Empty(t, turn.Messages)
	assert.Equal(t, PhaseConfirming, turn.State.Intent)
	assert.Equal(t, before.State.SelectedSlot, turn.State.SelectedSlot)
}

func TestEngine_RequestedSlotUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.book(t, "2024-03-14", "14:00")

	turn, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	assert.Nil(t, turn.State.SelectedSlot)
	require.Len(t, turn.Messages, 2)
	assert.Contains(t, turn.Messages[0].Text, "isn't available")
	assert.Equal(t, response.TypeBookingOptions, turn.Messages[1].Type)
	assert.Equal(t, "2024-03-14", turn.Messages[1].Data.Date)
	assert.Len(t, turn.Messages[1].Data.Slots, 7)
}

func TestEngine_TimeOutsideTemplateIsUnavailable(t *testing.T) {
	f := newFixture(t)

	turn, err := f.engine.HandleUtterance(context.Background(), "s1", "Book a call tomorrow at 12pm")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	require.Len(t, turn.Messages, 2)
	assert.Len(t, turn.Messages[1].Data.Slots, 8)
}

func TestEngine_DateOnlyOffersThatDay(t *testing.T) {
	f := newFixture(t)

	turn, err := f.engine.HandleUtterance(context.Background(), "s1", "Can I book something on Friday?")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	assert.Equal(t, "2024-03-15", turn.State.PreferredDate)
	require.Len(t, turn.Messages, 2)
	assert.Equal(t, "I can help you book something for Friday, March 15, 2024. Here are the available time slots:", turn.Messages[0].Text)
	assert.Equal(t, response.TypeBookingOptions, turn.Messages[1].Type)
}

func TestEngine_PreferencesAccumulateAcrossTurns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "Can I book something on Friday?")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "book it at 3pm")
	require.NoError(t, err)

	assert.Equal(t, PhaseConfirming, turn.State.Intent)
	require.NotNil(t, turn.State.SelectedSlot)
	assert.Equal(t, "2024-03-15-15:00", turn.State.SelectedSlot.ID)
}

func TestEngine_NoDateShowsWeek(t *testing.T) {
	f := newFixture(t)

	turn, err := f.engine.HandleUtterance(context.Background(), "s1", "I want to schedule a call")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	require.Len(t, turn.Messages, 2)
	week := turn.Messages[1]
	assert.Equal(t, response.TypeCalendar, week.Type)
	require.Len(t, week.Data.Slots, 56)
	assert.Equal(t, "2024-03-13", week.Data.Slots[0].Date)
	assert.Equal(t, "2024-03-19", week.Data.Slots[55].Date)
}

func TestEngine_AvailabilityCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.book(t, "2024-03-15", "09:00")
	f.book(t, "2024-03-15", "16:00")

	turn, err := f.engine.HandleUtterance(ctx, "s1", "Do you have any free time this Friday?")
	require.NoError(t, err)

	assert.Equal(t, PhaseIdle, turn.State.Intent)
	require.Len(t, turn.Messages, 2)
	assert.Equal(t, "Yes, I have several openings on Friday, March 15, 2024:", turn.Messages[0].Text)
	options := turn.Messages[1].Data
	assert.Equal(t, "2024-03-15", options.Date)
	require.Len(t, options.Slots, 6)
	for _, slot := range options.Slots {
		assert.True(t, slot.Available)
		assert.Equal(t, "2024-03-15", slot.Date)
	}
}

func TestEngine_AvailabilityCheckFullyBooked(t *testing.T) {
	f := newFixture(t)
	for _, clock := range availability.DefaultTemplate().Times() {
		f.book(t, "2024-03-15", clock)
	}

	turn, err := f.engine.HandleUtterance(context.Background(), "s1", "Do you have any free time this Friday?")
	require.NoError(t, err)

	require.Len(t, turn.Messages, 1)
	assert.Contains(t, turn.Messages[0].Text, "don't have any availability on Friday, March 15, 2024")
	assert.Nil(t, turn.Messages[0].Data)
}

func TestEngine_AvailabilityCheckWithoutDate(t *testing.T) {
	f := newFixture(t)

	turn, err := f.engine.HandleUtterance(context.Background(), "s1", "When can you talk?")
	require.NoError(t, err)

	require.Len(t, turn.Messages, 1)
	assert.Equal(t, response.TypeCalendar, turn.Messages[0].Type)
	assert.Len(t, turn.Messages[0].Data.Slots, 56)
}

func TestEngine_AvailabilityCheckKeepsConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "what's free on friday?")
	require.NoError(t, err)

	assert.Equal(t, PhaseConfirming, turn.State.Intent)
	assert.NotNil(t, turn.State.SelectedSlot)
}

func TestEngine_GreetingWhenIdle(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 20; i++ {
		turn, err := f.engine.HandleUtterance(context.Background(), "s1", "hello")
		require.NoError(t, err)
		require.Len(t, turn.Messages, 1)
		assert.Contains(t, response.Greetings, turn.Messages[0].Text)
		assert.Equal(t, PhaseIdle, turn.State.Intent)
	}
}

func TestEngine_BookingPhaseIgnoresUnclassifiedText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "I want to schedule a call")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "hmm")
	require.NoError(t, err)
	assert.Empty(t, turn.Messages)
	assert.Equal(t, PhaseBooking, turn.State.Intent)
}

func TestEngine_LostRaceOnCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	// Another dialogue commits the same slot first.
	_, err = f.engine.HandleUtterance(ctx, "s2", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)
	_, err = f.engine.HandleUtterance(ctx, "s2", "yes")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "s1", "yes")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	assert.Nil(t, turn.State.SelectedSlot)
	require.Len(t, turn.Messages, 2)
	assert.Contains(t, turn.Messages[0].Text, "someone else just took that slot")
	assert.Len(t, turn.Messages[1].Data.Slots, 7)

	assert.Len(t, f.bookings(t), 1)
}

func TestEngine_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "alice", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	turn, err := f.engine.HandleUtterance(ctx, "bob", "yes")
	require.NoError(t, err)
	require.Len(t, turn.Messages, 1)
	assert.Contains(t, response.Greetings, turn.Messages[0].Text)
	assert.Empty(t, f.bookings(t))

	alice, err := f.engine.State(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, PhaseConfirming, alice.Intent)
}

func TestEngine_SelectSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	turn, err := f.engine.SelectSlot(ctx, "s1", "2024-03-18", "09:00")
	require.NoError(t, err)

	assert.Equal(t, PhaseConfirming, turn.State.Intent)
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, response.TypeConfirmation, turn.Messages[0].Type)
	assert.Contains(t, turn.Messages[0].Text, "Great choice!")

	turn, err = f.engine.Confirm(ctx, "s1", true)
	require.NoError(t, err)
	require.Len(t, turn.Messages, 2)
	assert.True(t, turn.Messages[1].RequestsCalendarEvent())
	assert.Equal(t, PhaseIdle, turn.State.Intent)
}

func TestEngine_SelectSlotMalformed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, tc := range []struct{ date, clock string }{
		{"2024-03-18", "12:00"},
		{"not-a-date", "09:00"},
	} {
		turn, err := f.engine.SelectSlot(ctx, "s1", tc.date, tc.clock)
		require.NoError(t, err)
		assert.Empty(t, turn.Messages)
		assert.Equal(t, PhaseIdle, turn.State.Intent)
	}
}

func TestEngine_SelectTakenSlot(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2024-03-18", "09:00")

	turn, err := f.engine.SelectSlot(context.Background(), "s1", "2024-03-18", "09:00")
	require.NoError(t, err)

	assert.Equal(t, PhaseBooking, turn.State.Intent)
	assert.Nil(t, turn.State.SelectedSlot)
	require.Len(t, turn.Messages, 2)
	assert.Contains(t, turn.Messages[0].Text, "someone else just took that slot")
}

func TestEngine_ConfirmOutsideConfirmingIsNoop(t *testing.T) {
	f := newFixture(t)

	turn, err := f.engine.Confirm(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Empty(t, turn.Messages)
	assert.Equal(t, PhaseIdle, turn.State.Intent)
	assert.Empty(t, f.bookings(t))
}

func TestEngine_ConfirmNo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.SelectSlot(ctx, "s1", "2024-03-18", "10:00")
	require.NoError(t, err)

	turn, err := f.engine.Confirm(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, PhaseBooking, turn.State.Intent)
	assert.Nil(t, turn.State.SelectedSlot)
}

func TestEngine_Reset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)
	require.NoError(t, f.engine.Reset(ctx, "s1"))

	st, err := f.engine.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, NewState(), st)

	n, err := f.engine.ActiveSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEngine_ExpireStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "stale", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)
	_, err = f.engine.HandleUtterance(ctx, "idle", "hello")
	require.NoError(t, err)

	f.now = f.now.Add(5 * time.Minute)
	expired, err := f.engine.ExpireStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, expired)

	_, err = f.engine.HandleUtterance(ctx, "fresh", "Book a meeting for friday at 9am")
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Minute)
	expired, err = f.engine.ExpireStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, expired)

	st, err := f.engine.State(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, PhaseBooking, st.Intent)
	assert.Nil(t, st.SelectedSlot)

	fresh, err := f.engine.State(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, PhaseConfirming, fresh.Intent)
}

type failingSlots struct {
	SlotBook
}

func (failingSlots) Slot(context.Context, string, string) (*models.TimeSlot, error) {
	return nil, errors.New("disk on fire")
}

func TestEngine_StorageErrorLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.HandleUtterance(ctx, "s1", "Book a meeting for tomorrow afternoon")
	require.NoError(t, err)

	broken := NewEngine(f.engine.sessions, failingSlots{SlotBook: f.store}, nil,
		f.engine.extractor, f.engine.composer, nil)

	turn, err := broken.HandleUtterance(ctx, "s1", "I want to schedule a call")
	require.Error(t, err)
	assert.Equal(t, PhaseConfirming, turn.State.Intent)

	st, err := f.engine.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseConfirming, st.Intent)
	assert.NotNil(t, st.SelectedSlot)
}
