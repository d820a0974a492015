package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameReceived()
		m.RenderFailed()
		m.SnapshotFailed("transport")
		m.SetClients(3)
	})
	assert.NotNil(t, m.Handler())
}

func TestCounters(t *testing.T) {
	m := New()
	m.Rendered()
	m.Rendered()
	m.FrameMalformed()
	m.SnapshotFailed("status")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Renders))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotFailures.WithLabelValues("status")))
}
