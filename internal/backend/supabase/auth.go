package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// tokenResponse is the GoTrue session payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) *domain.Session {
	s := &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Identity:     domain.Identity{UserID: t.User.ID, Email: t.User.Email},
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return s
}

func (c *Client) token(ctx context.Context, grant string, payload map[string]string) (*domain.Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, "POST", c.authz+"/token?grant_type="+grant, body, "", nil)
	if err != nil {
		return nil, err
	}
	if resp.status >= 400 {
		return nil, parseError(resp.body, resp.status, true)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.body, &tr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("supabase: token response without access_token")
	}
	return tr.session(c.now()), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	s, err := c.token(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("supabase.SignInWithPassword: %w", err)
	}

	c.store(s)
	c.bc.Emit(backend.EventSignedIn, s)
	return backend.CloneSession(s), nil
}

// CurrentSession returns the held session, refreshing it when expired.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	s := c.snapshot()
	if s == nil || !s.Expired(c.now()) {
		return s, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.snapshot()
	if cur == nil || cur.AccessToken != s.AccessToken {
		return cur, nil
	}

	fresh, err := c.token(ctx, "refresh_token", map[string]string{"refresh_token": cur.RefreshToken})
	if err != nil {
		if domain.IsAuthError(err) {
			c.log.InfoContext(ctx, "session refresh rejected, signing out",
				slog.String("email", cur.Identity.Email))
			c.store(nil)
			c.bc.Emit(backend.EventSignedOut, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("supabase.CurrentSession refresh: %w", err)
	}

	c.store(fresh)
	c.bc.Emit(backend.EventTokenRefreshed, fresh)
	return backend.CloneSession(fresh), nil
}

func (c *Client) OnSessionChange(l backend.Listener) backend.Subscription {
	return c.bc.Subscribe(l, c.snapshot())
}

// SignOut revokes the session on the server. A 401 or 404 from GoTrue
// still drops the local session.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.snapshot()
	if s == nil {
		return nil
	}

	resp, err := c.do(ctx, "POST", c.authz+"/logout", nil, s.AccessToken, nil)
	if err != nil {
		return fmt.Errorf("supabase.SignOut: %w", err)
	}
	if resp.status >= 400 && resp.status != 401 && resp.status != 404 {
		return fmt.Errorf("supabase.SignOut: %w", parseError(resp.body, resp.status, true))
	}

	c.store(nil)
	c.bc.Emit(backend.EventSignedOut, nil)
	return nil
}
