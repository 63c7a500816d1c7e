// Package dialogue runs the per-session booking negotiation.
package dialogue

import (
	"time"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// Phase is where a dialogue stands in the negotiation.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseBooking    Phase = "booking"
	PhaseConfirming Phase = "confirming"
)

// State is one dialogue's negotiation state. Confirming always carries a
// SelectedSlot; every other phase carries none.
type State struct {
	Intent        Phase            `json:"intent"`
	Step          int              `json:"step"`
	PreferredDate string           `json:"preferredDate,omitempty"`
	PreferredTime string           `json:"preferredTime,omitempty"`
	SelectedSlot  *models.TimeSlot `json:"selectedSlot,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewState returns the initial idle state.
func NewState() State {
	return State{Intent: PhaseIdle}
}

func (s *State) reset() {
	*s = State{Intent: PhaseIdle, UpdatedAt: s.UpdatedAt}
}

func (s *State) confirm(slot models.TimeSlot) {
	s.Intent = PhaseConfirming
	s.SelectedSlot = &slot
}

func (s *State) backToBooking() {
	s.Intent = PhaseBooking
	s.SelectedSlot = nil
}
