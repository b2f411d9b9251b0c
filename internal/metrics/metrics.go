// Package metrics exposes Prometheus collectors for the coordination paths.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	attendance    *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cache         *prometheus.CounterVec
	requests      *prometheus.HistogramVec
}

// New registers collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Name:      "attendance_submissions_total",
			Help:      "Attendance submissions by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Name:      "meeting_transitions_total",
			Help:      "Meeting request status transitions.",
		}, []string{"from", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Name:      "notifications_total",
			Help:      "Notification emits by type and result.",
		}, []string{"type", "result"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Name:      "cache_lookups_total",
			Help:      "Derived view cache lookups.",
		}, []string{"view", "result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicops",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.attendance, m.transitions, m.notifications, m.cache, m.requests)
	return m
}

func (m *Metrics) AttendanceSubmission(outcome string) {
	if m == nil {
		return
	}
	m.attendance.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MeetingTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CacheLookup(view string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(view, result).Inc()
}

// GinMiddleware observes request latency keyed by the matched route pattern.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
