// Package auth holds the signed-in calendar account. Token exchange with
// the identity provider happens in the client; this side only stores what
// the client hands over and serves it back on demand.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/booking-assistant/backend/internal/storage"
	"github.com/booking-assistant/backend/internal/storage/models"
)

// ErrMissingToken is returned when saving a credential without an access token.
var ErrMissingToken = errors.New("access token is required")

// CredentialStore persists the single credential.
type CredentialStore interface {
	Get(ctx context.Context) (*models.Credential, error)
	Save(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context) error
}

var _ CredentialStore = (*storage.CredentialRepository)(nil)

// Status is what the client sees about the signed-in account.
type Status struct {
	Authenticated bool                `json:"authenticated"`
	User          *models.UserProfile `json:"user,omitempty"`
}

// Provider serves the stored credential.
type Provider struct {
	store  CredentialStore
	logger *zap.Logger
}

// NewProvider creates a provider over store.
func NewProvider(store CredentialStore, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{store: store, logger: logger}
}

// AccessToken returns the stored access token and whether one exists.
func (p *Provider) AccessToken(ctx context.Context) (string, bool, error) {
	c, err := p.store.Get(ctx)
	if err != nil {
		return "", false, err
	}
	if c == nil || c.AccessToken == "" {
		return "", false, nil
	}
	return c.AccessToken, true, nil
}

// Status reports whether an account is signed in, and who.
func (p *Provider) Status(ctx context.Context) (Status, error) {
	c, err := p.store.Get(ctx)
	if err != nil {
		return Status{}, err
	}
	if c == nil || c.AccessToken == "" {
		return Status{}, nil
	}
	user := c.User
	return Status{Authenticated: true, User: &user}, nil
}

// Save stores a credential, replacing any previous one.
func (p *Provider) Save(ctx context.Context, c *models.Credential) error {
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	if c.AccessToken == "" {
		return ErrMissingToken
	}
	if err := p.store.Save(ctx, c); err != nil {
		return err
	}
	p.logger.Info("calendar account signed in", zap.String("email", c.User.Email))
	return nil
}

// Logout forgets the stored credential.
func (p *Provider) Logout(ctx context.Context) error {
	if err := p.store.Delete(ctx); err != nil {
		return err
	}
	p.logger.Info("calendar account signed out")
	return nil
}
