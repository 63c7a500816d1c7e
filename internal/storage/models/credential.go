package models

import "time"

// Credential is the stored result of the external OAuth sign-in: an access
// token, a refresh token and the signed-in user's profile.
type Credential struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         UserProfile `json:"user"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// UserProfile is the user-info part of a Credential.
type UserProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}
