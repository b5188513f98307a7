package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonlinemenu/refadmin/internal/domain"
	"github.com/wonlinemenu/refadmin/internal/guard"
	"github.com/wonlinemenu/refadmin/internal/reflist"
	"github.com/wonlinemenu/refadmin/internal/transport/middleware"
	"github.com/wonlinemenu/refadmin/internal/visitor"
)

type dashboardPage struct {
	page
	Total      int
	CountError bool
	Error      string
}

type referencesPage struct {
	page
	reflist.Snapshot
}

// adminVisitor returns the visitor of a guarded request. The guard has
// already ensured the session is signed in.
func adminVisitor(r *http.Request) (*visitor.Visitor, page) {
	v := middleware.VisitorFromCtx(r.Context())
	p := page{Live: true}
	if id := v.Session.State().Identity; id != nil {
		p.Email = id.Email
	}
	return v, p
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, "")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	v, p := adminVisitor(r)
	p.Title = "Dashboard"
	v.References.DiscardDraft()

	data := dashboardPage{page: p, Error: errMsg}
	total, err := v.References.Count(r.Context())
	if err != nil {
		s.log.WarnContext(r.Context(), "count references", slog.String("error", err.Error()))
		data.CountError = true
	}
	data.Total = total
	s.render(w, r, status, "dashboard", data)
}

// handleLogout redirects to the login page only once the session is gone.
// A failed sign-out leaves the visitor signed in, so it is shown on the
// dashboard instead.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	v := middleware.VisitorFromCtx(r.Context())
	v.References.DiscardDraft()
	if err := v.Session.SignOut(r.Context()); err != nil {
		s.log.WarnContext(r.Context(), "sign out failed", slog.String("error", err.Error()))
		s.renderDashboard(w, r, statusFor(err), "Sign out failed: "+err.Error())
		return
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	// Failure is surfaced through the snapshot.
	_ = v.References.Mount(r.Context())
	s.renderReferences(w, r, http.StatusOK)
}

func (s *Server) handleAddReference(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	err := v.References.Add(r.Context(), r.PostFormValue("value"))
	s.afterAction(w, r, err)
}

func (s *Server) handleRefreshReferences(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	err := v.References.FetchAll(r.Context())
	s.afterAction(w, r, err)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	err := v.References.BeginEditByID(mux.Vars(r)["id"])
	s.afterAction(w, r, err)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	v.References.CancelEdit()
	http.Redirect(w, r, referencesPath, http.StatusSeeOther)
}

func (s *Server) handleSaveReference(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	err := v.References.CommitEdit(r.Context(), mux.Vars(r)["id"], r.PostFormValue("value"))
	s.afterAction(w, r, err)
}

func (s *Server) handleDeleteReference(w http.ResponseWriter, r *http.Request) {
	v, _ := adminVisitor(r)
	err := v.References.Remove(r.Context(), mux.Vars(r)["id"])
	s.afterAction(w, r, err)
}

// afterAction redirects to the list on success. On failure the list is
// rendered in place so the inline error survives.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		http.Redirect(w, r, referencesPath, http.StatusSeeOther)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.log.InfoContext(r.Context(), "reference not listed", slog.String("id", mux.Vars(r)["id"]))
	}
	s.renderReferences(w, r, statusFor(err))
}

func (s *Server) renderReferences(w http.ResponseWriter, r *http.Request, status int) {
	v, p := adminVisitor(r)
	p.Title = "References"
	s.render(w, r, status, "references", referencesPage{page: p, Snapshot: v.References.Snapshot()})
}
