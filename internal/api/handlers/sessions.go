package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/assistant"
	"github.com/booking-assistant/backend/internal/dialogue"
)

// maxSessionIDLen bounds client-chosen session ids.
const maxSessionIDLen = 128

// ChatService runs dialogue turns for the session endpoints.
type ChatService interface {
	Say(ctx context.Context, sessionID, text string) (dialogue.Turn, error)
	Select(ctx context.Context, sessionID, date, clock string) (dialogue.Turn, error)
	Confirm(ctx context.Context, sessionID string, confirmed bool) (dialogue.Turn, error)
	Session(ctx context.Context, sessionID string) (assistant.Session, error)
	Reset(ctx context.Context, sessionID string) error
}

var _ ChatService = (*assistant.Service)(nil)

// Session request types

type MessageRequest struct {
	Text string `json:"text"`
}

type SelectRequest struct {
	Slot struct {
		Date string `json:"date"`
		Time string `json:"time"`
	} `json:"slot"`
}

type ConfirmRequest struct {
	Confirmed *bool `json:"confirmed"`
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" || len(id) > maxSessionIDLen {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid session id")
		return "", false
	}
	return id, true
}

func writeTurn(w http.ResponseWriter, turn dialogue.Turn, err error) {
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// PostMessage handles free-form text from the user.
func PostMessage(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}

		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Text is required")
			return
		}

		turn, err := svc.Say(r.Context(), id, req.Text)
		writeTurn(w, turn, err)
	}
}

// SelectSlot handles the user tapping a slot.
func SelectSlot(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}

		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Slot.Date == "" || req.Slot.Time == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Slot date and time are required")
			return
		}

		turn, err := svc.Select(r.Context(), id, req.Slot.Date, req.Slot.Time)
		writeTurn(w, turn, err)
	}
}

// ConfirmSlot handles a yes/no button press.
func ConfirmSlot(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}

		var req ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.Confirmed == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "confirmed is required")
			return
		}

		turn, err := svc.Confirm(r.Context(), id, *req.Confirmed)
		writeTurn(w, turn, err)
	}
}

// GetSession returns a session's state and the welcome message.
func GetSession(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}

		sess, err := svc.Session(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load session")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// ResetSession forgets a session.
func ResetSession(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}

		if err := svc.Reset(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to reset session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
