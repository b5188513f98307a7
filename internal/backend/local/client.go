// Package local implements backend.Client in-process, over the auth service
// and the postgres reference repository.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonlinemenu/refadmin/internal/auth"
	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/domain"
	authsvc "github.com/wonlinemenu/refadmin/internal/service/auth"
	"github.com/wonlinemenu/refadmin/pkg/ctxutil"
)

// authService is the subset of the auth service the client needs.
type authService interface {
	LoginWithPassword(ctx context.Context, input authsvc.LoginPasswordInput) (*authsvc.AuthResult, error)
	Refresh(ctx context.Context, input authsvc.RefreshInput) (*authsvc.AuthResult, error)
	Logout(ctx context.Context) error
	ValidateToken(ctx context.Context, token string) (auth.Claims, error)
}

// referenceRepo is the subset of the reference repository the client needs.
type referenceRepo interface {
	List(ctx context.Context, orderBy domain.ReferenceColumn, ascending bool) ([]domain.Reference, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, in domain.NewReference) (*domain.Reference, error)
	Update(ctx context.Context, id string, patch domain.ReferencePatch) (*domain.Reference, error)
	Delete(ctx context.Context, id string) error
}

// Client is a backend.Client for one page view.
type Client struct {
	log  *slog.Logger
	auth authService
	refs referenceRepo
	now  func() time.Time
	bc   backend.Broadcaster

	mu      sync.Mutex
	session *domain.Session

	// refreshMu serializes token rotation so a refresh token is spent once.
	refreshMu sync.Mutex
}

var _ backend.Client = (*Client)(nil)

// New creates a signed-out client.
func New(logger *slog.Logger, authService authService, refs referenceRepo) *Client {
	return &Client{
		log:  logger.With("backend", "local"),
		auth: authService,
		refs: refs,
		now:  time.Now,
	}
}

// NewFactory returns a backend.Factory that builds local clients sharing
// the same service and repository.
func NewFactory(logger *slog.Logger, authService authService, refs referenceRepo) backend.Factory {
	return func() backend.Client {
		return New(logger, authService, refs)
	}
}

// WithClock overrides the clock used for expiry checks.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

func (c *Client) snapshot() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return backend.CloneSession(c.session)
}

func (c *Client) store(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = backend.CloneSession(s)
}

// CurrentSession returns the held session, rotating tokens when the access
// token has expired.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	s := c.snapshot()
	if s == nil || !s.Expired(c.now()) {
		return s, nil
	}
	return c.refresh(ctx, s)
}

func (c *Client) refresh(ctx context.Context, stale *domain.Session) (*domain.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.snapshot()
	if cur == nil {
		return nil, nil
	}
	if cur.AccessToken != stale.AccessToken {
		return cur, nil
	}

	res, err := c.auth.Refresh(ctx, authsvc.RefreshInput{RefreshToken: cur.RefreshToken})
	if err != nil {
		if domain.IsAuthError(err) || errors.Is(err, domain.ErrValidation) {
			c.log.InfoContext(ctx, "session refresh rejected, signing out",
				slog.String("email", cur.Identity.Email))
			c.store(nil)
			c.bc.Emit(backend.EventSignedOut, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("local.CurrentSession refresh: %w", err)
	}

	s := res.Session()
	c.store(s)
	c.bc.Emit(backend.EventTokenRefreshed, s)
	return backend.CloneSession(s), nil
}

func (c *Client) OnSessionChange(l backend.Listener) backend.Subscription {
	return c.bc.Subscribe(l, c.snapshot())
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	res, err := c.auth.LoginWithPassword(ctx, authsvc.LoginPasswordInput{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	s := res.Session()
	c.store(s)
	c.bc.Emit(backend.EventSignedIn, s)
	return backend.CloneSession(s), nil
}

// SignOut revokes the user's refresh tokens and drops the session. With no
// session held it does nothing.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.snapshot()
	if s == nil {
		return nil
	}

	userID, err := uuid.Parse(s.Identity.UserID)
	if err != nil {
		return fmt.Errorf("local.SignOut: %w", domain.ErrUnauthorized)
	}
	if err := c.auth.Logout(ctxutil.WithUserID(ctx, userID)); err != nil {
		return fmt.Errorf("local.SignOut: %w", err)
	}

	c.store(nil)
	c.bc.Emit(backend.EventSignedOut, nil)
	return nil
}

func (c *Client) References() backend.Table { return table{c} }

type table struct{ c *Client }

// authorize checks that a valid access token is held for a write.
func (t table) authorize(ctx context.Context) error {
	s, err := t.c.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return domain.ErrUnauthorized
	}
	if _, err := t.c.auth.ValidateToken(ctx, s.AccessToken); err != nil {
		return domain.ErrUnauthorized
	}
	return nil
}

func (t table) Select(ctx context.Context, q backend.Query) (backend.Result, error) {
	var res backend.Result

	if !q.Head {
		order := q.Order.OrderOrDefault()
		recs, err := t.c.refs.List(ctx, order.Column, order.Ascending)
		if err != nil {
			return backend.Result{}, fmt.Errorf("local.Select: %w", err)
		}
		res.Records = recs
	}

	if q.Count {
		if q.Head {
			n, err := t.c.refs.Count(ctx)
			if err != nil {
				return backend.Result{}, fmt.Errorf("local.Select count: %w", err)
			}
			res.Count = n
		} else {
			res.Count = len(res.Records)
		}
	}

	return res, nil
}

func (t table) Insert(ctx context.Context, rec domain.NewReference) error {
	if err := t.authorize(ctx); err != nil {
		return fmt.Errorf("local.Insert: %w", err)
	}
	if _, err := t.c.refs.Create(ctx, rec); err != nil {
		return fmt.Errorf("local.Insert: %w", err)
	}
	return nil
}

func (t table) Update(ctx context.Context, id string, patch domain.ReferencePatch) error {
	if err := t.authorize(ctx); err != nil {
		return fmt.Errorf("local.Update: %w", err)
	}
	if _, err := t.c.refs.Update(ctx, id, patch); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("local.Update: %w", err)
	}
	return nil
}

func (t table) Delete(ctx context.Context, id string) error {
	if err := t.authorize(ctx); err != nil {
		return fmt.Errorf("local.Delete: %w", err)
	}
	if err := t.c.refs.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("local.Delete: %w", err)
	}
	return nil
}
