package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// BusyQuerier performs the remote free/busy lookup.
type BusyQuerier interface {
	FreeBusy(ctx context.Context, token string, from, to time.Time) ([]BusyPeriod, error)
}

var _ BusyQuerier = (*Client)(nil)

// BusyLookup answers free/busy questions for whole days.
type BusyLookup struct {
	tokens TokenSource
	client BusyQuerier
	loc    *time.Location
}

// NewBusyLookup creates a lookup that reads days in loc.
func NewBusyLookup(tokens TokenSource, client BusyQuerier, loc *time.Location) *BusyLookup {
	if loc == nil {
		loc = time.Local
	}
	return &BusyLookup{tokens: tokens, client: client, loc: loc}
}

// BusyOn returns the remote calendar's busy periods on date (YYYY-MM-DD).
// It returns ErrNotAuthenticated when no account is signed in.
func (l *BusyLookup) BusyOn(ctx context.Context, date string) ([]BusyPeriod, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, l.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	token, ok, err := l.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}

	return l.client.FreeBusy(ctx, token, day, day.AddDate(0, 0, 1))
}
