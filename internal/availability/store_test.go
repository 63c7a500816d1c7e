package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-assistant/backend/internal/storage/models"
)

func newTestStore() (*Store, *MemoryLedger) {
	ledger := NewMemoryLedger()
	return NewStore(ledger, DefaultTemplate(), ""), ledger
}

func TestSlotsForDate_FixedTemplate(t *testing.T) {
	store, _ := newTestStore()

	for _, date := range []string{"2024-02-29", "2024-03-15", "2025-12-31"} {
		slots, err := store.SlotsForDate(context.Background(), date)
		require.NoError(t, err)
		require.Len(t, slots, 8)

		want := []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00", "17:00"}
		for i, slot := range slots {
			assert.Equal(t, want[i], slot.Time)
			assert.Equal(t, date, slot.Date)
			assert.Equal(t, date+"-"+want[i], slot.ID)
			assert.Equal(t, 60, slot.DurationMinutes)
			assert.True(t, slot.Available)
			if i > 0 {
				assert.Less(t, slots[i-1].Time, slot.Time)
			}
		}
	}
}

func TestSlotsForDate_InvalidDate(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.SlotsForDate(context.Background(), "03/15/2024")
	assert.Error(t, err)
}

func TestAvailableSlotsForDate_SubtractsBookings(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	for i, clock := range []string{"09:00", "14:00", "17:00"} {
		_, err := store.Book(ctx, models.TimeSlot{Date: "2024-03-15", Time: clock, DurationMinutes: 60}, "")
		require.NoError(t, err)

		available, err := store.AvailableSlotsForDate(ctx, "2024-03-15")
		require.NoError(t, err)
		assert.Len(t, available, 8-(i+1))
		for _, slot := range available {
			assert.True(t, slot.Available)
		}
	}

	available, err := store.AvailableSlotsForDate(ctx, "2024-03-15")
	require.NoError(t, err)
	times := make([]string, len(available))
	for i, slot := range available {
		times[i] = slot.Time
	}
	assert.Equal(t, []string{"10:00", "11:00", "13:00", "15:00", "16:00"}, times)

	other, err := store.AvailableSlotsForDate(ctx, "2024-03-16")
	require.NoError(t, err)
	assert.Len(t, other, 8)
}

func TestSlotsForWeek(t *testing.T) {
	store, _ := newTestStore()

	week, err := store.SlotsForWeek(context.Background(), "2024-02-26")
	require.NoError(t, err)
	require.Len(t, week, 56)

	wantDates := []string{
		"2024-02-26", "2024-02-27", "2024-02-28", "2024-02-29",
		"2024-03-01", "2024-03-02", "2024-03-03",
	}
	for day, date := range wantDates {
		for i := 0; i < 8; i++ {
			assert.Equal(t, date, week[day*8+i].Date)
		}
	}
	assert.Equal(t, "09:00", week[8].Time)
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	fixed := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })

	b, err := store.Book(ctx, models.TimeSlot{Date: "2024-03-16", Time: "14:00", DurationMinutes: 60}, "  ")
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "Meeting", b.Title)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.Equal(t, 60, b.DurationMinutes)
	assert.True(t, fixed.Equal(b.CreatedAt))

	all, err := store.AllBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestBook_RejectsSecondBookingForSameSlot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	slot := models.TimeSlot{Date: "2024-03-16", Time: "10:00", DurationMinutes: 60}

	_, err := store.Book(ctx, slot, "First")
	require.NoError(t, err)

	_, err = store.Book(ctx, slot, "Second")
	assert.ErrorIs(t, err, ErrSlotTaken)

	all, err := store.AllBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBook_ConcurrentReservationsNeverDoubleBook(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	slot := models.TimeSlot{Date: "2024-03-16", Time: "11:00", DurationMinutes: 60}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Book(ctx, slot, "")
		}()
	}
	wg.Wait()

	all, err := store.AllBookings(ctx)
	require.NoError(t, err)

	confirmed := map[string]int{}
	for _, b := range all {
		if b.IsConfirmed() {
			confirmed[b.SlotKey()]++
		}
	}
	assert.Equal(t, map[string]int{"2024-03-16-11:00": 1}, confirmed)
}

func TestBook_UnknownSlot(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Book(context.Background(), models.TimeSlot{Date: "2024-03-16", Time: "12:00"}, "")
	assert.ErrorIs(t, err, ErrUnknownSlot)

	_, err = store.Slot(context.Background(), "2024-03-16", "08:30")
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestCancel_FreesSlot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	b, err := store.Book(ctx, models.TimeSlot{Date: "2024-03-16", Time: "13:00", DurationMinutes: 60}, "")
	require.NoError(t, err)

	slot, err := store.Slot(ctx, "2024-03-16", "13:00")
	require.NoError(t, err)
	assert.False(t, slot.Available)

	cancelled, err := store.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	slot, err = store.Slot(ctx, "2024-03-16", "13:00")
	require.NoError(t, err)
	assert.True(t, slot.Available)
}

func TestTemplate_CustomHours(t *testing.T) {
	store := NewStore(NewMemoryLedger(), Template{Hours: []int{8, 12}, DurationMinutes: 30}, "Call")

	slots, err := store.SlotsForDate(context.Background(), "2024-03-16")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, 30, slots[1].DurationMinutes)

	b, err := store.Book(context.Background(), slots[1], "")
	require.NoError(t, err)
	assert.Equal(t, "Call", b.Title)
}
