package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type requestRecorder interface {
	BeginRequest() func(method, route string, status int, d time.Duration)
}

// Metrics records request counts and durations labelled by the matched
// route template. Install it with mux.Router.Use so the route is known.
func Metrics(rec requestRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := rec.BeginRequest()
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			done(r.Method, routeLabel(r), sw.status, time.Since(start))
		})
	}
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
