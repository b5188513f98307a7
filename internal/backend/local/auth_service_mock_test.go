package local

import (
	"context"
	"sync"

	"github.com/wonlinemenu/refadmin/internal/auth"
	authsvc "github.com/wonlinemenu/refadmin/internal/service/auth"
)

var _ authService = &authServiceMock{}

type authServiceMock struct {
	LoginWithPasswordFunc func(ctx context.Context, input authsvc.LoginPasswordInput) (*authsvc.AuthResult, error)
	RefreshFunc           func(ctx context.Context, input authsvc.RefreshInput) (*authsvc.AuthResult, error)
	LogoutFunc            func(ctx context.Context) error
	ValidateTokenFunc     func(ctx context.Context, token string) (auth.Claims, error)

	mu    sync.RWMutex
	calls struct {
		LoginWithPassword []authsvc.LoginPasswordInput
		Refresh           []authsvc.RefreshInput
		Logout            []context.Context
		ValidateToken     []string
	}
}

func (mock *authServiceMock) LoginWithPassword(ctx context.Context, input authsvc.LoginPasswordInput) (*authsvc.AuthResult, error) {
	if mock.LoginWithPasswordFunc == nil {
		panic("authServiceMock.LoginWithPasswordFunc: method is nil but authService.LoginWithPassword was just called")
	}
	mock.mu.Lock()
	mock.calls.LoginWithPassword = append(mock.calls.LoginWithPassword, input)
	mock.mu.Unlock()
	return mock.LoginWithPasswordFunc(ctx, input)
}

func (mock *authServiceMock) Refresh(ctx context.Context, input authsvc.RefreshInput) (*authsvc.AuthResult, error) {
	if mock.RefreshFunc == nil {
		panic("authServiceMock.RefreshFunc: method is nil but authService.Refresh was just called")
	}
	mock.mu.Lock()
	mock.calls.Refresh = append(mock.calls.Refresh, input)
	mock.mu.Unlock()
	return mock.RefreshFunc(ctx, input)
}

func (mock *authServiceMock) Logout(ctx context.Context) error {
	if mock.LogoutFunc == nil {
		panic("authServiceMock.LogoutFunc: method is nil but authService.Logout was just called")
	}
	mock.mu.Lock()
	mock.calls.Logout = append(mock.calls.Logout, ctx)
	mock.mu.Unlock()
	return mock.LogoutFunc(ctx)
}

func (mock *authServiceMock) ValidateToken(ctx context.Context, token string) (auth.Claims, error) {
	if mock.ValidateTokenFunc == nil {
		panic("authServiceMock.ValidateTokenFunc: method is nil but authService.ValidateToken was just called")
	}
	mock.mu.Lock()
	mock.calls.ValidateToken = append(mock.calls.ValidateToken, token)
	mock.mu.Unlock()
	return mock.ValidateTokenFunc(ctx, token)
}

func (mock *authServiceMock) RefreshCalls() []authsvc.RefreshInput {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Refresh
}

func (mock *authServiceMock) LogoutCalls() []context.Context {
	mock.mu.RLock()
	defer mock.mu.RUnlock()
	return mock.calls.Logout
}
