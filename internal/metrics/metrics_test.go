package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AttendanceSubmission("accepted")
	m.AttendanceSubmission("accepted")
	m.MeetingTransition("pending", "in_progress")
	m.Notification("question", "written")
	m.CacheLookup("student", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attendance.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending", "in_progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("question", "written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("student", "hit")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AttendanceSubmission("accepted")
		m.MeetingTransition("a", "b")
		m.Notification("x", "y")
		m.CacheLookup("v", false)
	})
}
