package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wonlinemenu/refadmin/internal/backend/backendtest"
	"github.com/wonlinemenu/refadmin/internal/visitor"
	"github.com/wonlinemenu/refadmin/pkg/ctxutil"
)

func newVisitorRegistry(t *testing.T) *visitor.Registry {
	t.Helper()
	reg := visitor.NewRegistry(backendtest.NewStore().Factory(),
		slog.New(slog.NewTextHandler(io.Discard, nil)), visitor.Options{TTL: time.Minute})
	t.Cleanup(reg.Close)
	return reg
}

func TestVisitor_IssuesCookie(t *testing.T) {
	reg := newVisitorRegistry(t)
	cookie := VisitorCookie{Name: "refadmin_visitor", MaxAge: 30 * time.Minute}

	var got *visitor.Visitor
	h := Visitor(reg, cookie)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = VisitorFromCtx(r.Context())
		if _, ok := ctxutil.VisitorIDFromCtx(r.Context()); !ok {
			t.Error("expected visitor id in context")
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if got == nil {
		t.Fatal("expected visitor in context")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "refadmin_visitor" {
		t.Fatalf("cookies = %v", cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Error("cookie must be HttpOnly and SameSite=Lax")
	}
	if cookies[0].Value != got.ID.String() {
		t.Errorf("cookie %s does not match visitor %s", cookies[0].Value, got.ID)
	}
}

func TestVisitor_ReusesCookie(t *testing.T) {
	reg := newVisitorRegistry(t)
	cookie := VisitorCookie{Name: "refadmin_visitor", MaxAge: time.Minute}
	id := uuid.New()

	var got *visitor.Visitor
	h := Visitor(reg, cookie)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = VisitorFromCtx(r.Context())
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "refadmin_visitor", Value: id.String()})
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got == nil || got.ID != id {
		t.Fatalf("expected visitor %s, got %v", id, got)
	}
	if reg.Len() != 1 {
		t.Errorf("expected one visitor, got %d", reg.Len())
	}
}

func TestVisitor_MalformedCookieGetsNewID(t *testing.T) {
	reg := newVisitorRegistry(t)
	h := Visitor(reg, VisitorCookie{Name: "v"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "v", Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	c := rec.Result().Cookies()[0]
	if _, err := uuid.Parse(c.Value); err != nil {
		t.Errorf("expected fresh uuid cookie, got %q", c.Value)
	}
}

func TestVisitor_RegistryClosed(t *testing.T) {
	reg := newVisitorRegistry(t)
	reg.Close()

	h := Visitor(reg, VisitorCookie{Name: "v"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
