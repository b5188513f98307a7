package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wonlinemenu/refadmin/internal/auth"
	"github.com/wonlinemenu/refadmin/internal/config"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// userRepo is the account storage the service reads and provisions.
type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// tokenRepo stores refresh token hashes. GetByHash reports ErrNotFound for
// revoked tokens.
type tokenRepo interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeByID(ctx context.Context, id uuid.UUID) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) (int, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type jwtManager interface {
	GenerateAccessToken(userID uuid.UUID, email string) (string, time.Time, error)
	ValidateAccessToken(token string) (auth.Claims, error)
	GenerateRefreshToken() (raw string, hash string, err error)
}

// Service owns password sign-in and refresh token rotation for the local
// backend. Access tokens are stateless; only refresh tokens hit the database.
type Service struct {
	log    *slog.Logger
	users  userRepo
	tokens tokenRepo
	tx     txManager
	jwt    jwtManager
	cfg    config.AuthConfig
	now    func() time.Time

	// decoy is compared against when the account is unknown so both
	// outcomes pay for one bcrypt comparison.
	decoy func() []byte
}

// NewService wires the service. cfg.PasswordHashCost applies to new hashes.
func NewService(
	logger *slog.Logger,
	users userRepo,
	tokens tokenRepo,
	tx txManager,
	jwt jwtManager,
	cfg config.AuthConfig,
) *Service {
	return &Service{
		log:    logger.With("service", "auth"),
		users:  users,
		tokens: tokens,
		tx:     tx,
		jwt:    jwt,
		cfg:    cfg,
		now:    time.Now,
		decoy: sync.OnceValue(func() []byte {
			h, err := bcrypt.GenerateFromPassword([]byte("refadmin-decoy"), cfg.PasswordHashCost)
			if err != nil {
				return nil
			}
			return h
		}),
	}
}
