package supabase

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/wonlinemenu/refadmin/internal/domain"
)

// Error is a non-2xx answer from the Supabase API.
type Error struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.kind }

// parseError builds an Error from a GoTrue or PostgREST error body.
// authEndpoint marks GoTrue calls, where 400 means rejected credentials.
func parseError(body []byte, status int, authEndpoint bool) error {
	msg := firstString(body, "msg", "message", "error_description", "error")
	if msg == "" {
		msg = http.StatusText(status)
	}
	code := firstString(body, "code", "error_code")

	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domain.ErrUnauthorized
	case authEndpoint && status == http.StatusBadRequest:
		kind = domain.ErrUnauthorized
	case code == "42501":
		kind = domain.ErrUnauthorized
	case code == "23514" || code == "23502" || code == "22P02":
		kind = domain.ErrValidation
	case code == "23505" || status == http.StatusConflict:
		kind = domain.ErrAlreadyExists
	case status == http.StatusNotFound:
		kind = domain.ErrNotFound
	}

	return &Error{Status: status, Code: code, Message: msg, kind: kind}
}

func firstString(body []byte, paths ...string) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
