package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/booking-assistant/backend/internal/storage/models"
)

const bookingColumns = `
	id, date, time, duration_minutes, title, status, created_at, cancelled_at,
	calendar_key, calendar_status, calendar_event_id, calendar_error`

// BookingRepository is the SQLite booking ledger.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Reserve appends a confirmed booking for b.Date and b.Time. The unique
// index on confirmed (date, time) makes the insert an atomic
// compare-and-reserve: if another confirmed booking already holds the slot
// the insert fails and ErrSlotTaken is returned.
func (r *BookingRepository) Reserve(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = GenerateID()
	}
	if b.CalendarKey == "" {
		b.CalendarKey = GenerateID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.Now()
	}
	b.Status = models.BookingStatusConfirmed
	b.CalendarStatus = models.CalendarStatusPending

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (
			id, date, time, duration_minutes, title, status, created_at,
			calendar_key, calendar_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.Date, b.Time, b.DurationMinutes, b.Title, b.Status, b.CreatedAt,
		b.CalendarKey, b.CalendarStatus,
	)
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// BookedTimes returns the set of times on date held by confirmed bookings.
func (r *BookingRepository) BookedTimes(ctx context.Context, date string) (map[string]bool, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT time FROM bookings WHERE date = ? AND status = 'confirmed'
	`, date)
	if err != nil {
		return nil, fmt.Errorf("querying booked times: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning booked time: %w", err)
		}
		booked[t] = true
	}

	return booked, rows.Err()
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(r.DB().QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	return b, nil
}

// List returns every booking in ledger order.
func (r *BookingRepository) List(ctx context.Context) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// CountConfirmed returns the number of confirmed bookings.
func (r *BookingRepository) CountConfirmed(ctx context.Context) (int, error) {
	var n int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE status = 'confirmed'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting bookings: %w", err)
	}
	return n, nil
}

// Cancel moves a confirmed booking to cancelled, releasing its slot.
func (r *BookingRepository) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	now := r.Now()

	err := r.Transaction(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, "SELECT status FROM bookings WHERE id = ?", id).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying booking status: %w", err)
		}
		if status != models.BookingStatusConfirmed {
			return ErrNotConfirmed
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET status = 'cancelled', cancelled_at = ? WHERE id = ?
		`, now, id)
		if err != nil {
			return fmt.Errorf("cancelling booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// ClaimCalendarSync moves a booking's calendar status from pending to
// sending. It reports false when another caller already claimed it, which
// is the guard that keeps the remote event from being created twice.
func (r *BookingRepository) ClaimCalendarSync(ctx context.Context, id string) (bool, error) {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET calendar_status = 'sending'
		WHERE id = ? AND calendar_status = 'pending'
	`, id)
	if err != nil {
		return false, fmt.Errorf("claiming calendar sync: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming calendar sync: %w", err)
	}
	return rowsAffected == 1, nil
}

// RecordCalendarSync stores the outcome of a calendar publication.
func (r *BookingRepository) RecordCalendarSync(ctx context.Context, id, status string, eventID, syncError *string) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET calendar_status = ?, calendar_event_id = ?, calendar_error = ?
		WHERE id = ?
	`, status, eventID, syncError, id)
	if err != nil {
		return fmt.Errorf("recording calendar sync: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.Date, &b.Time, &b.DurationMinutes, &b.Title, &b.Status,
		&b.CreatedAt, &b.CancelledAt, &b.CalendarKey, &b.CalendarStatus,
		&b.CalendarEventID, &b.CalendarError,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
