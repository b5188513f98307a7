package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wonlinemenu/refadmin/internal/domain"
	"github.com/wonlinemenu/refadmin/internal/guard"
	"github.com/wonlinemenu/refadmin/internal/transport/middleware"
)

type loginPage struct {
	page
	FormEmail string
	Error     string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	guard.Await(r.Context(), v.Session, s.opts.ResolveWait)
	if v.Session.State().SignedIn() {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", loginPage{page: page{Title: "Admin panel"}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if err := v.Session.SignIn(r.Context(), email, password); err != nil {
		s.log.InfoContext(r.Context(), "sign in failed",
			slog.String("email", email),
			slog.String("error", err.Error()))
		s.render(w, r, statusFor(err), "login", loginPage{
			page:      page{Title: "Admin panel"},
			FormEmail: email,
			Error:     loginMessage(err),
		})
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "Login failed: email and password are required"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Login failed: invalid email or password"
	default:
		return "Login failed: the authentication service is unavailable"
	}
}

func (s *Server) handleLoginThrottled(w http.ResponseWriter, r *http.Request) {
	s.log.WarnContext(r.Context(), "sign in throttled")
	s.render(w, r, http.StatusTooManyRequests, "login", loginPage{
		page:      page{Title: "Admin panel"},
		FormEmail: strings.TrimSpace(r.PostFormValue("email")),
		Error:     "Login failed: too many attempts, try again in a minute",
	})
}
