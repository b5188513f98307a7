// Package web serves the public reference listing and the admin panel as
// server-rendered HTML.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wonlinemenu/refadmin/internal/domain"
	"github.com/wonlinemenu/refadmin/internal/guard"
	"github.com/wonlinemenu/refadmin/internal/reflist"
	"github.com/wonlinemenu/refadmin/internal/session"
	"github.com/wonlinemenu/refadmin/internal/transport/middleware"
)

const (
	dashboardPath  = "/admin/dashboard"
	referencesPath = "/admin/references"
)

//go:embed templates/*.html
var templatesFS embed.FS

type homeBoard interface {
	Snapshot() reflist.Snapshot
	Refresh(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	// ResolveWait bounds how long a guarded request waits for the visitor's
	// session to resolve before the placeholder is shown.
	ResolveWait time.Duration
	// Visitor attaches the per-browser state to admin requests.
	Visitor middleware.Middleware
	// LoginLimiter throttles sign-in attempts per client. Nil disables it.
	LoginLimiter *middleware.RateLimiter
}

// Server renders the HTML views.
type Server struct {
	log      *slog.Logger
	tmpl     *template.Template
	board    homeBoard
	opts     Options
	upgrader websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

// New parses the embedded templates and returns a Server.
func New(logger *slog.Logger, board homeBoard, opts Options) (*Server, error) {
	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"stamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web.New: parse templates: %w", err)
	}
	if opts.Visitor == nil {
		return nil, errors.New("web.New: visitor middleware is required")
	}

	s := &Server{
		log:     logger.With("component", "web"),
		tmpl:    tmpl,
		board:   board,
		opts:    opts,
		closing: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     sameOrigin,
	}
	return s, nil
}

// Register mounts all HTML routes on r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.Handle("/admin", http.RedirectHandler(dashboardPath, http.StatusSeeOther))

	admin := r.PathPrefix("/admin/").Subrouter()
	admin.Use(mux.MiddlewareFunc(s.opts.Visitor))
	admin.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	var login http.Handler = http.HandlerFunc(s.handleLogin)
	if s.opts.LoginLimiter != nil {
		login = s.opts.LoginLimiter.Limit(http.HandlerFunc(s.handleLoginThrottled))(login)
	}
	admin.Handle("/login", login).Methods(http.MethodPost)
	admin.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)

	protected := admin.NewRoute().Subrouter()
	protected.Use(guard.Middleware(visitorStore, s.opts.ResolveWait, http.HandlerFunc(s.handlePlaceholder)))
	protected.Handle("/", http.RedirectHandler(dashboardPath, http.StatusSeeOther))
	protected.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	protected.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	protected.HandleFunc("/references", s.handleReferences).Methods(http.MethodGet)
	protected.HandleFunc("/references", s.handleAddReference).Methods(http.MethodPost)
	protected.HandleFunc("/references/refresh", s.handleRefreshReferences).Methods(http.MethodPost)
	protected.HandleFunc("/references/{id}/edit", s.handleBeginEdit).Methods(http.MethodPost)
	protected.HandleFunc("/references/{id}/cancel", s.handleCancelEdit).Methods(http.MethodPost)
	protected.HandleFunc("/references/{id}/save", s.handleSaveReference).Methods(http.MethodPost)
	protected.HandleFunc("/references/{id}/delete", s.handleDeleteReference).Methods(http.MethodPost)
	protected.PathPrefix("/").HandlerFunc(s.handleNotFound)
}

// Close ends all open live connections.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func visitorStore(r *http.Request) *session.Store {
	v := middleware.VisitorFromCtx(r.Context())
	if v == nil {
		return nil
	}
	return v.Session
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.ErrorContext(r.Context(), "render template",
			slog.String("template", name),
			slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	s.render(w, r, http.StatusOK, "placeholder", page{Title: "Loading"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if v := middleware.VisitorFromCtx(r.Context()); v != nil {
		v.References.DiscardDraft()
	}
	s.render(w, r, http.StatusNotFound, "notfound", page{Title: "Not found", Live: true})
}

// page carries the fields every layout needs.
type page struct {
	Title string
	Live  bool
	Email string
}

// statusFor picks the response status for a failed view action.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
