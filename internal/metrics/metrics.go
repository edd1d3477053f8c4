// Package metrics exposes the Prometheus collectors of the CMS.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// CommentEvents counts workflow outcomes: submitted, edited, deleted, denied, invalid.
	CommentEvents *prometheus.CounterVec
	// ModeratedComments counts rows touched by bulk approve/disapprove.
	ModeratedComments *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them, with the Go and process collectors,
// on a private registry.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coreflow_http_requests_total",
			Help: "HTTP requests partitioned by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coreflow_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)
	m.CommentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coreflow_comment_events_total",
			Help: "Comment workflow outcomes.",
		},
		[]string{"event"},
	)
	m.ModeratedComments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coreflow_moderated_comments_total",
			Help: "Comments whose approval flag was set by moderation.",
		},
		[]string{"action"},
	)

	for _, c := range []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPDuration,
		m.CommentEvents,
		m.ModeratedComments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CommentEvent(event string) {
	if m == nil {
		return
	}
	m.CommentEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Moderated(action string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ModeratedComments.WithLabelValues(action).Add(float64(n))
}
