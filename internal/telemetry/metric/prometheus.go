// Package metric provides Prometheus metrics for TradeGuard.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradeguard"

// Registry holds all application metrics.
//
// All Record/Inc/Observe methods are safe on a nil *Registry, so components
// can run without metrics in tests.
type Registry struct {
	registry *prometheus.Registry

	// Session metrics
	LoginAttempts      *prometheus.CounterVec
	ReconnectAttempts  *prometheus.CounterVec
	HealthProbes       *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec

	// Offer metrics
	OffersReceived *prometheus.CounterVec
	AutoAccepts    *prometheus.CounterVec
	OfferActions   *prometheus.CounterVec

	// Notification metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthFailures    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with Go runtime and process
// collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		ReconnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Session recovery attempts by outcome.",
		}, []string{"result"}),
		HealthProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_probes_total",
			Help:      "Health monitor ticks by outcome.",
		}, []string{"result"}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session Guard state transitions by target state.",
		}, []string{"to"}),
		OffersReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_received_total",
			Help:      "Offers observed by classification.",
		}, []string{"kind"}),
		AutoAccepts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_accepts_total",
			Help:      "Automatic gift acceptances by outcome.",
		}, []string{"result"}),
		OfferActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_actions_total",
			Help:      "Manual accept and decline calls by outcome.",
		}, []string{"action", "result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Notifications published by kind.",
		}, []string{"kind"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Notifications dropped for slow subscribers.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Local API requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Local API request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected local API requests by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		r.LoginAttempts,
		r.ReconnectAttempts,
		r.HealthProbes,
		r.SessionTransitions,
		r.OffersReceived,
		r.AutoAccepts,
		r.OfferActions,
		r.EventsPublished,
		r.EventsDropped,
		r.RequestsTotal,
		r.RequestDuration,
		r.AuthFailures,
	)
	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// RecordLogin counts a login attempt outcome.
func (r *Registry) RecordLogin(result string) {
	if r == nil {
		return
	}
	r.LoginAttempts.WithLabelValues(result).Inc()
}

// RecordReconnect counts a recovery attempt outcome.
func (r *Registry) RecordReconnect(result string) {
	if r == nil {
		return
	}
	r.ReconnectAttempts.WithLabelValues(result).Inc()
}

// RecordProbe counts a health monitor tick outcome.
func (r *Registry) RecordProbe(result string) {
	if r == nil {
		return
	}
	r.HealthProbes.WithLabelValues(result).Inc()
}

// RecordTransition counts a state transition into to.
func (r *Registry) RecordTransition(to string) {
	if r == nil {
		return
	}
	r.SessionTransitions.WithLabelValues(to).Inc()
}

// RecordOffer counts an observed offer by kind (gift or trade).
func (r *Registry) RecordOffer(kind string) {
	if r == nil {
		return
	}
	r.OffersReceived.WithLabelValues(kind).Inc()
}

// RecordAutoAccept counts an automatic acceptance outcome.
func (r *Registry) RecordAutoAccept(result string) {
	if r == nil {
		return
	}
	r.AutoAccepts.WithLabelValues(result).Inc()
}

// RecordOfferAction counts a manual accept or decline.
func (r *Registry) RecordOfferAction(action, result string) {
	if r == nil {
		return
	}
	r.OfferActions.WithLabelValues(action, result).Inc()
}

// RecordEvent counts a published notification.
func (r *Registry) RecordEvent(kind string) {
	if r == nil {
		return
	}
	r.EventsPublished.WithLabelValues(kind).Inc()
}

// IncEventsDropped counts a notification dropped for one subscriber.
func (r *Registry) IncEventsDropped() {
	if r == nil {
		return
	}
	r.EventsDropped.Inc()
}

// RecordRequest counts a local API request.
func (r *Registry) RecordRequest(method, route, status string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records a local API request latency.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordAuthFailure counts a rejected local API request.
func (r *Registry) RecordAuthFailure(reason string) {
	if r == nil {
		return
	}
	r.AuthFailures.WithLabelValues(reason).Inc()
}
