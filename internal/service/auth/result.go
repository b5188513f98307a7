package auth

import (
	"time"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

// AuthResult is returned by LoginWithPassword and Refresh operations.
type AuthResult struct {
	AccessToken  string
	RefreshToken string // raw token, NOT hash
	ExpiresAt    time.Time
	User         *domain.User
}

// Session converts the result into a backend session.
func (r *AuthResult) Session() *domain.Session {
	return &domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
		Identity: domain.Identity{
			UserID: r.User.ID.String(),
			Email:  r.User.Email,
		},
	}
}
