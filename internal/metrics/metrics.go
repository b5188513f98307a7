// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/reflist"
)

const namespace = "refadmin"

// Recorder holds every collector on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	mutations     *prometheus.CounterVec
	sessionEvents *prometheus.CounterVec
	visitors      prometheus.Gauge
	publicRefresh *prometheus.CounterVec
	publicRecords prometheus.Gauge
}

// New creates a Recorder with process and Go runtime collectors included.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "references",
			Name:      "mutations_total",
			Help:      "Reference mutations by operation and result.",
		}, []string{"op", "result"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session change notifications applied.",
		}, []string{"event"}),
		visitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active_visitors",
			Help:      "Visitors with live server-side state.",
		}),
		publicRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "public",
			Name:      "refreshes_total",
			Help:      "Public listing refreshes by result.",
		}, []string{"result"}),
		publicRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "public",
			Name:      "records",
			Help:      "Records shown on the public listing after the last refresh.",
		}),
	}

	r.registry.MustRegister(
		r.httpInFlight,
		r.httpRequests,
		r.httpDuration,
		r.mutations,
		r.sessionEvents,
		r.visitors,
		r.publicRefresh,
		r.publicRecords,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// BeginRequest marks a request in flight and returns its completion func.
func (r *Recorder) BeginRequest() func(method, route string, status int, d time.Duration) {
	r.httpInFlight.Inc()
	return func(method, route string, status int, d time.Duration) {
		r.httpInFlight.Dec()
		method = strings.ToUpper(method)
		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// Mutation implements reflist.Observer.
func (r *Recorder) Mutation(op reflist.Op, err error) {
	r.mutations.WithLabelValues(string(op), result(err)).Inc()
}

// SessionEvent implements session.Observer.
func (r *Recorder) SessionEvent(event backend.Event) {
	r.sessionEvents.WithLabelValues(event.String()).Inc()
}

// VisitorsActive implements visitor.Observer.
func (r *Recorder) VisitorsActive(n int) {
	r.visitors.Set(float64(n))
}

// PublicRefresh records one public listing refresh.
func (r *Recorder) PublicRefresh(records int, err error) {
	r.publicRefresh.WithLabelValues(result(err)).Inc()
	if err == nil {
		r.publicRecords.Set(float64(records))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
