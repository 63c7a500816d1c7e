package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a mutation targets a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotTaken is returned when a confirmed booking already holds the
	// requested (date, time).
	ErrSlotTaken = errors.New("slot already booked")

	// ErrNotConfirmed is returned when cancelling a booking that is not confirmed.
	ErrNotConfirmed = errors.New("booking is not confirmed")
)

// BaseRepository carries what every repository shares: the handle and a
// clock for row timestamps.
type BaseRepository struct {
	db  *DB
	now func() time.Time
}

func NewBaseRepository(db *DB) BaseRepository {
	return BaseRepository{db: db, now: time.Now}
}

// DB returns the underlying database connection.
func (r *BaseRepository) DB() *DB {
	return r.db
}

// Now returns the current time in UTC for database timestamps.
func (r *BaseRepository) Now() time.Time {
	return r.now().UTC()
}

// SetClock overrides the repository clock.
func (r *BaseRepository) SetClock(now func() time.Time) {
	r.now = now
}

// Transaction executes a function within a database transaction.
func (r *BaseRepository) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return r.db.Transaction(ctx, fn)
}

// GenerateID creates a new random UUID for use as a primary key.
func GenerateID() string {
	return uuid.NewString()
}
