// Package calendar publishes committed bookings to the user's remote
// calendar and exports the ledger as iCalendar.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Google Calendar v3 API root.
const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// ErrEventExists is returned when the remote calendar already holds an
// event with the requested id.
var ErrEventExists = errors.New("calendar event already exists")

// Config holds the remote calendar settings.
type Config struct {
	BaseURL    string
	CalendarID string
	Timeout    time.Duration
}

// APIError is a non-success response from the calendar API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar API error (status %d): %s", e.StatusCode, e.Body)
}

// Client talks to the calendar REST API with a caller-supplied bearer token.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a calendar API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.CalendarID == "" {
		config.CalendarID = "primary"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// CreatedEvent is the part of the API's event resource we keep.
type CreatedEvent struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink,omitempty"`
	Status   string `json:"status,omitempty"`
}

// CreateEvent inserts event into the configured calendar. When event.ID is
// set and the calendar already has it, ErrEventExists is returned.
func (c *Client) CreateEvent(ctx context.Context, token string, event Event) (*CreatedEvent, error) {
	path := "/calendars/" + url.PathEscape(c.config.CalendarID) + "/events"

	var created CreatedEvent
	err := c.do(ctx, token, http.MethodPost, path, event, &created)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil, ErrEventExists
	}
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// BusyPeriod is one busy interval reported by the free/busy query.
type BusyPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyRequest struct {
	TimeMin string         `json:"timeMin"`
	TimeMax string         `json:"timeMax"`
	Items   []freeBusyItem `json:"items"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []BusyPeriod `json:"busy"`
	} `json:"calendars"`
}

// FreeBusy returns the busy periods of the configured calendar in [from, to).
func (c *Client) FreeBusy(ctx context.Context, token string, from, to time.Time) ([]BusyPeriod, error) {
	req := freeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []freeBusyItem{{ID: c.config.CalendarID}},
	}

	var resp freeBusyResponse
	if err := c.do(ctx, token, http.MethodPost, "/freeBusy", req, &resp); err != nil {
		return nil, err
	}

	busy := resp.Calendars[c.config.CalendarID].Busy
	if busy == nil {
		busy = []BusyPeriod{}
	}
	return busy, nil
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
