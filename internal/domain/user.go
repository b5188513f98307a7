package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an admin account of the local backend.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // bcrypt; empty means password sign-in is disabled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is the stored form of a refresh token. Only the SHA-256 of
// the raw token is kept.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the token was rotated away or signed out.
func (t *RefreshToken) IsRevoked() bool { return t.RevokedAt != nil }

// IsExpired reports whether the token is past its expiry at now. A token
// expiring exactly at now is still usable.
func (t *RefreshToken) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt) }
