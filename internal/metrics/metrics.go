// Package metrics holds the Prometheus counters for the dashboard and the dev feed server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	FeedFrames       prometheus.Counter
	FeedReconnects   prometheus.Counter
	FeedDropped      prometheus.Counter
	MalformedFrames  prometheus.Counter
	Renders          prometheus.Counter
	RenderFailures   prometheus.Counter
	SnapshotFailures *prometheus.CounterVec
	BoardBroadcasts  prometheus.Counter
	BoardClients     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry:         reg,
		FeedFrames:       f.NewCounter(prometheus.CounterOpts{Name: "dashboard_feed_frames_total", Help: "Frames received from the live feed"}),
		FeedReconnects:   f.NewCounter(prometheus.CounterOpts{Name: "dashboard_feed_reconnects_total", Help: "Feed reconnect attempts"}),
		FeedDropped:      f.NewCounter(prometheus.CounterOpts{Name: "dashboard_feed_superseded_total", Help: "Frames replaced by a newer frame before a subscriber read them"}),
		MalformedFrames:  f.NewCounter(prometheus.CounterOpts{Name: "dashboard_malformed_frames_total", Help: "Feed frames dropped because they did not decode"}),
		Renders:          f.NewCounter(prometheus.CounterOpts{Name: "dashboard_renders_total", Help: "Charts drawn"}),
		RenderFailures:   f.NewCounter(prometheus.CounterOpts{Name: "dashboard_render_failures_total", Help: "Chart draws that failed in the sink"}),
		SnapshotFailures: f.NewCounterVec(prometheus.CounterOpts{Name: "dashboard_snapshot_failures_total", Help: "Initial snapshot fetch failures by reason"}, []string{"reason"}),
		BoardBroadcasts:  f.NewCounter(prometheus.CounterOpts{Name: "scorefeed_broadcasts_total", Help: "Grouped snapshots broadcast by the score board"}),
		BoardClients:     f.NewGauge(prometheus.GaugeOpts{Name: "scorefeed_clients", Help: "Connected feed clients"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameReceived() {
	if m != nil {
		m.FeedFrames.Inc()
	}
}

func (m *Metrics) Reconnected() {
	if m != nil {
		m.FeedReconnects.Inc()
	}
}

func (m *Metrics) FrameSuperseded() {
	if m != nil {
		m.FeedDropped.Inc()
	}
}

func (m *Metrics) FrameMalformed() {
	if m != nil {
		m.MalformedFrames.Inc()
	}
}

func (m *Metrics) Rendered() {
	if m != nil {
		m.Renders.Inc()
	}
}

func (m *Metrics) RenderFailed() {
	if m != nil {
		m.RenderFailures.Inc()
	}
}

func (m *Metrics) Broadcast() {
	if m != nil {
		m.BoardBroadcasts.Inc()
	}
}

func (m *Metrics) SnapshotFailed(reason string) {
	if m != nil {
		m.SnapshotFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SetClients(n int) {
	if m != nil {
		m.BoardClients.Set(float64(n))
	}
}
