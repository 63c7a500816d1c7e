package availability

import (
	"context"
	"sync"
	"time"

	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// Ledger is the append-only record of committed bookings.
//
// Reserve must be an atomic compare-and-reserve keyed by (date, time): it
// either appends a confirmed booking or returns ErrSlotTaken, never both
// and never a second confirmed booking for the same slot.
type Ledger interface {
	Reserve(ctx context.Context, b *models.Booking) error
	BookedTimes(ctx context.Context, date string) (map[string]bool, error)
	List(ctx context.Context) ([]models.Booking, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	Cancel(ctx context.Context, id string) (*models.Booking, error)
}

var _ Ledger = (*storage.BookingRepository)(nil)
var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger is an in-process Ledger guarded by a single mutex.
type MemoryLedger struct {
	mu       sync.Mutex
	bookings []*models.Booking
	now      func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{now: time.Now}
}

func (l *MemoryLedger) Reserve(_ context.Context, b *models.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.bookings {
		if existing.IsConfirmed() && existing.Date == b.Date && existing.Time == b.Time {
			return ErrSlotTaken
		}
	}

	if b.ID == "" {
		b.ID = storage.GenerateID()
	}
	if b.CalendarKey == "" {
		b.CalendarKey = storage.GenerateID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = l.now().UTC()
	}
	b.Status = models.BookingStatusConfirmed
	b.CalendarStatus = models.CalendarStatusPending

	stored := *b
	l.bookings = append(l.bookings, &stored)
	return nil
}

func (l *MemoryLedger) BookedTimes(_ context.Context, date string) (map[string]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	booked := make(map[string]bool)
	for _, b := range l.bookings {
		if b.IsConfirmed() && b.Date == date {
			booked[b.Time] = true
		}
	}
	return booked, nil
}

func (l *MemoryLedger) List(_ context.Context) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Booking, len(l.bookings))
	for i, b := range l.bookings {
		out[i] = *b
	}
	return out, nil
}

func (l *MemoryLedger) GetByID(_ context.Context, id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b := l.find(id); b != nil {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (l *MemoryLedger) Cancel(_ context.Context, id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.find(id)
	if b == nil {
		return nil, storage.ErrNotFound
	}
	if !b.IsConfirmed() {
		return nil, storage.ErrNotConfirmed
	}

	now := l.now().UTC()
	b.Status = models.BookingStatusCancelled
	b.CancelledAt = &now

	copied := *b
	return &copied, nil
}

// ClaimCalendarSync moves the booking's calendar status from pending to sending.
func (l *MemoryLedger) ClaimCalendarSync(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.find(id)
	if b == nil || b.CalendarStatus != models.CalendarStatusPending {
		return false, nil
	}
	b.CalendarStatus = models.CalendarStatusSending
	return true, nil
}

// RecordCalendarSync stores the outcome of a calendar publication.
func (l *MemoryLedger) RecordCalendarSync(_ context.Context, id, status string, eventID, syncError *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.find(id)
	if b == nil {
		return storage.ErrNotFound
	}
	b.CalendarStatus = status
	b.CalendarEventID = eventID
	b.CalendarError = syncError
	return nil
}

func (l *MemoryLedger) find(id string) *models.Booking {
	for _, b := range l.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}
