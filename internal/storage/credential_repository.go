package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/booking-assistant/backend/internal/storage/models"
)

// credentialRowID is the single row that holds the signed-in account.
const credentialRowID = "default"

// CredentialRepository persists the calendar account's token/user-info triple.
type CredentialRepository struct {
	BaseRepository
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Get returns the stored credential, or nil if nobody is signed in.
func (r *CredentialRepository) Get(ctx context.Context) (*models.Credential, error) {
	c := &models.Credential{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT access_token, refresh_token, user_email, user_name, user_picture, updated_at
		FROM calendar_credentials WHERE id = ?
	`, credentialRowID).Scan(
		&c.AccessToken, &c.RefreshToken, &c.User.Email, &c.User.Name,
		&c.User.Picture, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}

	return c, nil
}

// Save replaces the stored credential.
func (r *CredentialRepository) Save(ctx context.Context, c *models.Credential) error {
	c.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO calendar_credentials (
			id, access_token, refresh_token, user_email, user_name, user_picture, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			user_email = excluded.user_email,
			user_name = excluded.user_name,
			user_picture = excluded.user_picture,
			updated_at = excluded.updated_at
	`,
		credentialRowID, c.AccessToken, c.RefreshToken, c.User.Email,
		c.User.Name, c.User.Picture, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	return nil
}

// Delete removes the stored credential. Deleting when none exists is not an error.
func (r *CredentialRepository) Delete(ctx context.Context) error {
	if _, err := r.DB().ExecContext(ctx, "DELETE FROM calendar_credentials WHERE id = ?", credentialRowID); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}
