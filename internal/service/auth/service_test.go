package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wonlinemenu/refadmin/internal/auth"
	"github.com/wonlinemenu/refadmin/internal/config"
	"github.com/wonlinemenu/refadmin/internal/domain"
	"github.com/wonlinemenu/refadmin/pkg/ctxutil"
)

//go:generate moq -out user_repo_mock_test.go -pkg auth . userRepo
//go:generate moq -out token_repo_mock_test.go -pkg auth . tokenRepo
//go:generate moq -out tx_manager_mock_test.go -pkg auth . txManager
//go:generate moq -out jwt_manager_mock_test.go -pkg auth . jwtManager

func defaultCfg() config.AuthConfig {
	return config.AuthConfig{
		RefreshTokenTTL:  30 * 24 * time.Hour,
		PasswordHashCost: 4, // minimum cost for fast tests
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	return string(hash)
}

func passthroughTx() *txManagerMock {
	return &txManagerMock{
		RunInTxFunc: func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	}
}

func okJWT(expiresAt time.Time) *jwtManagerMock {
	return &jwtManagerMock{
		GenerateAccessTokenFunc: func(uuid.UUID, string) (string, time.Time, error) {
			return "access_token", expiresAt, nil
		},
		GenerateRefreshTokenFunc: func() (string, string, error) {
			return "raw_refresh", "hash_refresh", nil
		},
	}
}

func okTokens() *tokenRepoMock {
	return &tokenRepoMock{
		CreateFunc: func(context.Context, *domain.RefreshToken) error { return nil },
	}
}

// ─── LoginWithPassword ──────────────────────────────────────────────────────

func TestService_LoginWithPassword_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), Email: "admin@wonline.com", PasswordHash: hashPassword(t, "correct-horse")}
	expiresAt := time.Now().Add(15 * time.Minute)

	users := &userRepoMock{
		GetByEmailFunc: func(_ context.Context, email string) (*domain.User, error) {
			if email != "admin@wonline.com" {
				t.Errorf("GetByEmail called with %q, want normalized email", email)
			}
			return user, nil
		},
	}
	tokens := okTokens()
	jwt := okJWT(expiresAt)

	svc := NewService(slog.Default(), users, tokens, passthroughTx(), jwt, defaultCfg())

	result, err := svc.LoginWithPassword(ctx, LoginPasswordInput{Email: "  Admin@Wonline.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("LoginWithPassword returned error: %v", err)
	}
	if result.AccessToken != "access_token" || result.RefreshToken != "raw_refresh" {
		t.Errorf("unexpected tokens: %+v", result)
	}
	if !result.ExpiresAt.Equal(expiresAt) {
		t.Errorf("ExpiresAt: got=%v, want=%v", result.ExpiresAt, expiresAt)
	}

	sess := result.Session()
	if sess.Identity.UserID != user.ID.String() || sess.Identity.Email != user.Email {
		t.Errorf("session identity mismatch: %+v", sess.Identity)
	}

	if calls := tokens.CreateCalls(); len(calls) != 1 {
		t.Fatalf("tokens.Create called %d times, want 1", len(calls))
	} else if calls[0].Token.TokenHash != "hash_refresh" || calls[0].Token.UserID != user.ID {
		t.Errorf("stored token mismatch: %+v", calls[0].Token)
	}
	if calls := jwt.GenerateAccessTokenCalls(); len(calls) != 1 || calls[0].Email != user.Email {
		t.Errorf("GenerateAccessToken calls: %+v", calls)
	}
}

func TestService_LoginWithPassword_Unauthorized(t *testing.T) {
	t.Parallel()

	hash := hashPassword(t, "correct-horse")

	tests := []struct {
		name     string
		getUser  func(context.Context, string) (*domain.User, error)
		password string
	}{
		{
			name:     "unknown email",
			getUser:  func(context.Context, string) (*domain.User, error) { return nil, domain.ErrNotFound },
			password: "whatever",
		},
		{
			name: "wrong password",
			getUser: func(context.Context, string) (*domain.User, error) {
				return &domain.User{ID: uuid.New(), PasswordHash: hash}, nil
			},
			password: "battery-staple",
		},
		{
			name: "no password hash",
			getUser: func(context.Context, string) (*domain.User, error) {
				return &domain.User{ID: uuid.New()}, nil
			},
			password: "correct-horse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens := okTokens()
			svc := NewService(slog.Default(), &userRepoMock{GetByEmailFunc: tt.getUser}, tokens, passthroughTx(), okJWT(time.Now()), defaultCfg())

			_, err := svc.LoginWithPassword(context.Background(), LoginPasswordInput{Email: "a@b.c", Password: tt.password})
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if len(tokens.CreateCalls()) != 0 {
				t.Error("no token must be stored on failed login")
			}
		})
	}
}

func TestService_LoginWithPassword_Validation(t *testing.T) {
	t.Parallel()

	users := &userRepoMock{}
	svc := NewService(slog.Default(), users, okTokens(), passthroughTx(), okJWT(time.Now()), defaultCfg())

	_, err := svc.LoginWithPassword(context.Background(), LoginPasswordInput{Email: "   ", Password: ""})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(ve.Errors))
	}
	if len(users.GetByEmailCalls()) != 0 {
		t.Error("repo must not be called on invalid input")
	}
}

func TestService_LoginWithPassword_RepoError(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection refused")
	users := &userRepoMock{
		GetByEmailFunc: func(context.Context, string) (*domain.User, error) { return nil, dbErr },
	}
	svc := NewService(slog.Default(), users, okTokens(), passthroughTx(), okJWT(time.Now()), defaultCfg())

	_, err := svc.LoginWithPassword(context.Background(), LoginPasswordInput{Email: "a@b.c", Password: "pw"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		t.Error("storage failure must not look like bad credentials")
	}
}

// ─── Refresh ────────────────────────────────────────────────────────────────

func TestService_Refresh_Success(t *testing.T) {
	t.Parallel()

	user := &domain.User{ID: uuid.New(), Email: "admin@wonline.com"}
	stored := &domain.RefreshToken{ID: uuid.New(), UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}

	tokens := okTokens()
	tokens.GetByHashFunc = func(_ context.Context, h string) (*domain.RefreshToken, error) {
		if h != auth.HashToken("old_raw") {
			t.Errorf("GetByHash called with %q, want hash of raw token", h)
		}
		return stored, nil
	}
	tokens.RevokeByIDFunc = func(_ context.Context, id uuid.UUID) error {
		if id != stored.ID {
			t.Errorf("RevokeByID called with %s, want %s", id, stored.ID)
		}
		return nil
	}
	users := &userRepoMock{
		GetByIDFunc: func(context.Context, uuid.UUID) (*domain.User, error) { return user, nil },
	}
	tx := passthroughTx()

	svc := NewService(slog.Default(), users, tokens, tx, okJWT(time.Now().Add(time.Minute)), defaultCfg())

	result, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: "old_raw"})
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.RefreshToken != "raw_refresh" {
		t.Errorf("RefreshToken: got=%s", result.RefreshToken)
	}
	if len(tokens.RevokeByIDCalls()) != 1 || len(tokens.CreateCalls()) != 1 {
		t.Errorf("expected one revoke and one create, got %d/%d", len(tokens.RevokeByIDCalls()), len(tokens.CreateCalls()))
	}
	if len(tx.RunInTxCalls()) != 1 {
		t.Errorf("rotation must run in a transaction")
	}
}

func TestService_Refresh_Unauthorized(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name      string
		getByHash func(context.Context, string) (*domain.RefreshToken, error)
		getUser   func(context.Context, uuid.UUID) (*domain.User, error)
	}{
		{
			name:      "reused or revoked",
			getByHash: func(context.Context, string) (*domain.RefreshToken, error) { return nil, domain.ErrNotFound },
		},
		{
			name: "expired",
			getByHash: func(context.Context, string) (*domain.RefreshToken, error) {
				return &domain.RefreshToken{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(-time.Minute)}, nil
			},
		},
		{
			name: "user deleted",
			getByHash: func(context.Context, string) (*domain.RefreshToken, error) {
				return &domain.RefreshToken{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
			getUser: func(context.Context, uuid.UUID) (*domain.User, error) { return nil, domain.ErrNotFound },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens := okTokens()
			tokens.GetByHashFunc = tt.getByHash
			svc := NewService(slog.Default(), &userRepoMock{GetByIDFunc: tt.getUser}, tokens, passthroughTx(), okJWT(time.Now()), defaultCfg())

			_, err := svc.Refresh(context.Background(), RefreshInput{RefreshToken: "raw"})
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if len(tokens.CreateCalls()) != 0 {
				t.Error("no new token may be issued")
			}
		})
	}
}

func TestService_Refresh_EmptyToken(t *testing.T) {
	t.Parallel()

	svc := NewService(slog.Default(), &userRepoMock{}, &tokenRepoMock{}, passthroughTx(), okJWT(time.Now()), defaultCfg())

	_, err := svc.Refresh(context.Background(), RefreshInput{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ─── Logout ─────────────────────────────────────────────────────────────────

func TestService_Logout(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tokens := &tokenRepoMock{
		RevokeAllByUserFunc: func(context.Context, uuid.UUID) error { return nil },
	}
	svc := NewService(slog.Default(), &userRepoMock{}, tokens, passthroughTx(), okJWT(time.Now()), defaultCfg())

	if err := svc.Logout(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without user in ctx, got %v", err)
	}

	ctx := ctxutil.WithUserID(context.Background(), userID)
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	calls := tokens.RevokeAllByUserCalls()
	if len(calls) != 1 || calls[0].UserID != userID {
		t.Errorf("RevokeAllByUser calls: %+v", calls)
	}
}

func TestService_ValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwt := &jwtManagerMock{
		ValidateAccessTokenFunc: func(token string) (auth.Claims, error) {
			if token == "good" {
				return auth.Claims{UserID: userID, Email: "a@b.c"}, nil
			}
			return auth.Claims{}, errors.New("bad signature")
		},
	}
	svc := NewService(slog.Default(), &userRepoMock{}, &tokenRepoMock{}, passthroughTx(), jwt, defaultCfg())

	claims, err := svc.ValidateToken(context.Background(), "good")
	if err != nil || claims.UserID != userID {
		t.Fatalf("ValidateToken(good) = %+v, %v", claims, err)
	}
	if _, err := svc.ValidateToken(context.Background(), "bad"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestService_CleanupExpiredTokens(t *testing.T) {
	t.Parallel()

	tokens := &tokenRepoMock{
		DeleteExpiredFunc: func(context.Context) (int, error) { return 3, nil },
	}
	svc := NewService(slog.Default(), &userRepoMock{}, tokens, passthroughTx(), okJWT(time.Now()), defaultCfg())

	n, err := svc.CleanupExpiredTokens(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("CleanupExpiredTokens = %d, %v", n, err)
	}

	tokens.DeleteExpiredFunc = func(context.Context) (int, error) { return 0, errors.New("boom") }
	if _, err := svc.CleanupExpiredTokens(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// ─── CreateUser ─────────────────────────────────────────────────────────────

func TestService_CreateUser(t *testing.T) {
	t.Parallel()

	users := &userRepoMock{
		CreateFunc: func(_ context.Context, u *domain.User) (*domain.User, error) {
			created := *u
			return &created, nil
		},
	}
	svc := NewService(slog.Default(), users, &tokenRepoMock{}, passthroughTx(), okJWT(time.Now()), defaultCfg())

	user, err := svc.CreateUser(context.Background(), CreateUserInput{Email: " Owner@Wonline.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.Email != "owner@wonline.com" {
		t.Errorf("Email: got=%q", user.Email)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("long-enough")) != nil {
		t.Error("stored hash does not match password")
	}
}

func TestService_CreateUser_Errors(t *testing.T) {
	t.Parallel()

	users := &userRepoMock{
		CreateFunc: func(context.Context, *domain.User) (*domain.User, error) { return nil, domain.ErrAlreadyExists },
	}
	svc := NewService(slog.Default(), users, &tokenRepoMock{}, passthroughTx(), okJWT(time.Now()), defaultCfg())

	if _, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "a@b.c", Password: "long-enough"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "not-an-email", Password: "short"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(users.CreateCalls()) != 1 {
		t.Errorf("Create called %d times, want 1", len(users.CreateCalls()))
	}
}
