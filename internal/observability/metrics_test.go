package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/incidents", "GET", 200, 12*time.Millisecond)
	m.RecordRequest("/incidents", "GET", 200, 8*time.Millisecond)
	m.RecordRequest("/incidents", "POST", 201, 20*time.Millisecond)
	m.RecordError("/incidents/:id/assign", "PUT", "TRANSITION_REJECTED")

	requests, errors := m.Snapshot()
	assert.Equal(t, int64(2), requests["/incidents|GET|200"])
	assert.Equal(t, int64(1), requests["/incidents|POST|201"])
	assert.Equal(t, int64(1), errors["/incidents/:id/assign|PUT|TRANSITION_REJECTED"])

	// The snapshot is a copy, not a view.
	requests["/incidents|GET|200"] = 99
	fresh, _ := m.Snapshot()
	assert.Equal(t, int64(2), fresh["/incidents|GET|200"])

	// A nil receiver is a no-op recorder.
	var unset *Metrics
	unset.RecordRequest("/health/live", "GET", 200, time.Millisecond)
	unset.RecordError("/health/live", "GET", "INTERNAL")
}
