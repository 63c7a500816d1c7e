package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-assistant/backend/internal/storage/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db, nil))
	return db
}

func newBooking(date, clock string) *models.Booking {
	return &models.Booking{
		Date:            date,
		Time:            clock,
		DurationMinutes: 60,
		Title:           "Meeting",
	}
}

func TestBookingRepository_Reserve(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))
	fixed := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return fixed })

	b := newBooking("2024-03-16", "14:00")
	require.NoError(t, repo.Reserve(ctx, b))

	assert.NotEmpty(t, b.ID)
	assert.NotEmpty(t, b.CalendarKey)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.Equal(t, models.CalendarStatusPending, b.CalendarStatus)
	assert.True(t, fixed.Equal(b.CreatedAt))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-16", got.Date)
	assert.Equal(t, "14:00", got.Time)
	assert.Equal(t, 60, got.DurationMinutes)
	assert.Equal(t, b.CalendarKey, got.CalendarKey)
	assert.Nil(t, got.CancelledAt)
	assert.Nil(t, got.CalendarEventID)
}

func TestBookingRepository_ReserveRejectsDoubleBooking(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))

	require.NoError(t, repo.Reserve(ctx, newBooking("2024-03-16", "14:00")))
	err := repo.Reserve(ctx, newBooking("2024-03-16", "14:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different time on the same date is unaffected.
	require.NoError(t, repo.Reserve(ctx, newBooking("2024-03-16", "15:00")))

	n, err := repo.CountConfirmed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBookingRepository_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		taken   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Reserve(ctx, newBooking("2024-03-18", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				success++
			case ErrSlotTaken:
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, taken)
}

func TestBookingRepository_BookedTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))

	require.NoError(t, repo.Reserve(ctx, newBooking("2024-03-16", "09:00")))
	require.NoError(t, repo.Reserve(ctx, newBooking("2024-03-16", "13:00")))
	require.NoError(t, repo.Reserve(ctx, newBooking("2024-03-17", "09:00")))

	booked, err := repo.BookedTimes(ctx, "2024-03-16")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"09:00": true, "13:00": true}, booked)

	empty, err := repo.BookedTimes(ctx, "2024-03-20")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBookingRepository_ListKeepsLedgerOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))

	first := newBooking("2024-03-20", "17:00")
	second := newBooking("2024-03-16", "09:00")
	require.NoError(t, repo.Reserve(ctx, first))
	require.NoError(t, repo.Reserve(ctx, second))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestBookingRepository_GetByIDMissing(t *testing.T) {
	repo := NewBookingRepository(setupTestDB(t))

	got, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBookingRepository_Cancel(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))

	b := newBooking("2024-03-16", "14:00")
	require.NoError(t, repo.Reserve(ctx, b))

	cancelled, err := repo.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// The slot is free again.
	booked, err := repo.BookedTimes(ctx, "2024-03-16")
	require.NoError(t, err)
	assert.False(t, booked["14:00"])
	require.NoError(t, repo.Reserve(ctx, newBooking("2024-03-16", "14:00")))

	_, err = repo.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	_, err = repo.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepository_CalendarSync(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository(setupTestDB(t))

	b := newBooking("2024-03-16", "14:00")
	require.NoError(t, repo.Reserve(ctx, b))

	claimed, err := repo.ClaimCalendarSync(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimCalendarSync(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose")

	eventID := "evt-123"
	require.NoError(t, repo.RecordCalendarSync(ctx, b.ID, models.CalendarStatusCreated, &eventID, nil))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CalendarStatusCreated, got.CalendarStatus)
	require.NotNil(t, got.CalendarEventID)
	assert.Equal(t, "evt-123", *got.CalendarEventID)

	err = repo.RecordCalendarSync(ctx, "missing", models.CalendarStatusFailed, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
