package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/booking-assistant/backend/internal/api/middleware"
	"github.com/booking-assistant/backend/internal/auth"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// Credentials manages the signed-in calendar account.
type Credentials interface {
	Status(ctx context.Context) (auth.Status, error)
	Save(ctx context.Context, c *models.Credential) error
	Logout(ctx context.Context) error
}

var _ Credentials = (*auth.Provider)(nil)

// SaveCredentials stores the credential the client obtained at sign-in.
func SaveCredentials(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.Credential
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := creds.Save(r.Context(), &req); err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "access_token is required")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to save credentials")
			return
		}

		status, err := creds.Status(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to read credentials")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// AuthStatus reports whether a calendar account is signed in.
func AuthStatus(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := creds.Status(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to read credentials")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// Logout forgets the stored credential.
func Logout(creds Credentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := creds.Logout(r.Context()); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to sign out")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
