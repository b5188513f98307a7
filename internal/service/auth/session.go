package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/wonlinemenu/refadmin/internal/auth"
	"github.com/wonlinemenu/refadmin/internal/domain"
	"github.com/wonlinemenu/refadmin/pkg/ctxutil"
)

// LoginWithPassword signs an account in and opens a refresh token chain.
// Unknown emails, accounts without a password and wrong passwords all map
// to ErrUnauthorized.
func (s *Service) LoginWithPassword(ctx context.Context, input LoginPasswordInput) (*AuthResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := input.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.burnComparison(input.Password)
		return nil, domain.ErrUnauthorized
	case err != nil:
		return nil, fmt.Errorf("auth.LoginWithPassword: %w", err)
	case user.PasswordHash == "":
		s.burnComparison(input.Password)
		return nil, domain.ErrUnauthorized
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		s.log.InfoContext(ctx, "password rejected", slog.String("user_id", user.ID.String()))
		return nil, domain.ErrUnauthorized
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth.LoginWithPassword: %w", err)
	}
	s.log.InfoContext(ctx, "signed in", slog.String("user_id", user.ID.String()))
	return result, nil
}

// Refresh rotates a refresh token. The presented token is revoked and its
// successor stored in the same transaction, so a token works once.
func (s *Service) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.tokens.GetByHash(ctx, auth.HashToken(input.RefreshToken))
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "unknown or revoked refresh token presented")
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	if stored.IsExpired(s.now()) {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "refresh token outlived its account",
			slog.String("user_id", stored.UserID.String()))
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	var result *AuthResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.tokens.RevokeByID(ctx, stored.ID); err != nil {
			return fmt.Errorf("revoke %s: %w", stored.ID, err)
		}
		r, err := s.startSession(ctx, user)
		result = r
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	return result, nil
}

// Logout revokes every refresh token of the account carried on ctx.
func (s *Service) Logout(ctx context.Context) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if err := s.tokens.RevokeAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	s.log.InfoContext(ctx, "signed out", slog.String("user_id", userID.String()))
	return nil
}

func (s *Service) burnComparison(password string) {
	if h := s.decoy(); h != nil {
		_ = bcrypt.CompareHashAndPassword(h, []byte(password))
	}
}
