package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wonlinemenu/refadmin/internal/visitor"
	"github.com/wonlinemenu/refadmin/pkg/ctxutil"
)

type visitorKey struct{}

type visitorRegistry interface {
	GetOrCreate(id uuid.UUID) *visitor.Visitor
}

// VisitorCookie configures the browser identity cookie.
type VisitorCookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Visitor resolves the visitor cookie to its server-side state, issuing a
// new id when the cookie is missing or malformed.
func Visitor(reg visitorRegistry, cookie VisitorCookie) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := readVisitorID(r, cookie.Name)
			if !ok {
				id = uuid.New()
			}
			// Sliding expiry.
			http.SetCookie(w, &http.Cookie{
				Name:     cookie.Name,
				Value:    id.String(),
				Path:     "/",
				MaxAge:   int(cookie.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			v := reg.GetOrCreate(id)
			if v == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			annotateVisitor(r.Context(), id.String())
			ctx := ctxutil.WithVisitorID(r.Context(), id)
			ctx = context.WithValue(ctx, visitorKey{}, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func readVisitorID(r *http.Request, name string) (uuid.UUID, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// VisitorFromCtx returns the visitor stored by the Visitor middleware.
func VisitorFromCtx(ctx context.Context) *visitor.Visitor {
	v, _ := ctx.Value(visitorKey{}).(*visitor.Visitor)
	return v
}
