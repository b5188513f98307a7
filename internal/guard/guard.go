// Package guard decides whether a protected admin view may render.
package guard

import (
	"context"
	"net/http"
	"time"

	"github.com/wonlinemenu/refadmin/internal/session"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/admin/login"

// Decision is the outcome of evaluating a session state.
type Decision int

const (
	// Placeholder means the session is still resolving; no redirect yet.
	Placeholder Decision = iota
	Render
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Placeholder:
		return "placeholder"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decide evaluates st. It has no side effects and is re-run on every render.
func Decide(st session.State) Decision {
	switch {
	case st.Loading:
		return Placeholder
	case st.Identity != nil:
		return Render
	default:
		return Redirect
	}
}

// StoreResolver returns the session store owning the request, or nil.
type StoreResolver func(r *http.Request) *session.Store

// Middleware protects next. It waits up to wait for the session to resolve,
// then renders placeholder, next, or a 303 to LoginPath.
func Middleware(resolve StoreResolver, wait time.Duration, placeholder http.Handler) func(http.Handler) http.Handler {
	if placeholder == nil {
		placeholder = http.HandlerFunc(DefaultPlaceholder)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := resolve(r)
			if store == nil {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			Await(r.Context(), store, wait)

			switch Decide(store.State()) {
			case Placeholder:
				placeholder.ServeHTTP(w, r)
			case Render:
				next.ServeHTTP(w, r)
			default:
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			}
		})
	}
}

// Await blocks until store has resolved, wait has elapsed or ctx is done.
func Await(ctx context.Context, store *session.Store, wait time.Duration) {
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-store.Ready():
	case <-timer.C:
	case <-ctx.Done():
	}
}

// DefaultPlaceholder writes a neutral page that reloads itself shortly.
func DefaultPlaceholder(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html><html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head><body><p>Loading…</p></body></html>`))
}
