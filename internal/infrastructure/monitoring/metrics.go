package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Push channel metrics
	ChannelState      prometheus.Gauge
	ChannelConnects   prometheus.Counter
	ChannelReconnects prometheus.Counter
	ChannelFrames     *prometheus.CounterVec
	ChannelDropped    *prometheus.CounterVec

	// Store metrics
	StoreApplied      *prometheus.CounterVec
	StoreReplacements prometheus.Counter
	CompletedPages    prometheus.Gauge

	// Command metrics
	CommandCalls    *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Checkpoint metrics
	CheckpointOutcomes *prometheus.CounterVec

	// Observer API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ObserverClients prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a collector registered on its own registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith creates a collector registered on reg
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ChannelState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_channel_state",
			Help: "Push channel lifecycle state (0 disconnected, 1 connecting, 2 connected, 3 reconnect scheduled)",
		}),
		ChannelConnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_channel_connects_total",
			Help: "Push channel sockets successfully opened",
		}),
		ChannelReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_channel_reconnects_total",
			Help: "Reconnect attempts scheduled after an unexpected close",
		}),
		ChannelFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_channel_frames_total",
			Help: "Inbound push channel frames by type",
		}, []string{"type"}),
		ChannelDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_channel_dropped_total",
			Help: "Inbound frames dropped before reaching the store",
		}, []string{"reason"}),

		StoreApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_store_events_total",
			Help: "Events reduced by the session store by outcome",
		}, []string{"type", "outcome"}),
		StoreReplacements: factory.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_store_replacements_total",
			Help: "Wholesale session replacements (server wins)",
		}),
		CompletedPages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_completed_pages",
			Help: "Completed pages in the mirrored session",
		}),

		CommandCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_command_calls_total",
			Help: "Control commands issued by result",
		}, []string{"command", "result"}),
		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coordinator_command_duration_seconds",
			Help:    "Control command round-trip time",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),

		CheckpointOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_checkpoint_outcomes_total",
			Help: "Checkpoint resolutions by outcome",
		}, []string{"outcome"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_http_requests_total",
			Help: "Observer API requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coordinator_http_request_duration_seconds",
			Help:    "Observer API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "path"}),
		ObserverClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_observer_clients",
			Help: "Observer websocket clients currently attached",
		}),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// SetChannelState records the push channel lifecycle state
func (m *Metrics) SetChannelState(state int) {
	if m == nil {
		return
	}
	m.ChannelState.Set(float64(state))
}

// IncChannelConnects counts an opened socket
func (m *Metrics) IncChannelConnects() {
	if m == nil {
		return
	}
	m.ChannelConnects.Inc()
}

// IncChannelReconnects counts a scheduled reconnect
func (m *Metrics) IncChannelReconnects() {
	if m == nil {
		return
	}
	m.ChannelReconnects.Inc()
}

// RecordFrame counts an inbound frame
func (m *Metrics) RecordFrame(frameType string) {
	if m == nil {
		return
	}
	m.ChannelFrames.WithLabelValues(frameType).Inc()
}

// RecordDropped counts a frame dropped before the store
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.ChannelDropped.WithLabelValues(reason).Inc()
}

// RecordApplied counts a reduced event
func (m *Metrics) RecordApplied(eventType string, changed bool) {
	if m == nil {
		return
	}
	outcome := "noop"
	if changed {
		outcome = "changed"
	}
	m.StoreApplied.WithLabelValues(eventType, outcome).Inc()
}

// RecordReplacement counts a wholesale replacement
func (m *Metrics) RecordReplacement() {
	if m == nil {
		return
	}
	m.StoreReplacements.Inc()
}

// SetCompletedPages records the completed page count
func (m *Metrics) SetCompletedPages(count int) {
	if m == nil {
		return
	}
	m.CompletedPages.Set(float64(count))
}

// RecordCommand records a control command round trip
func (m *Metrics) RecordCommand(command, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CommandCalls.WithLabelValues(command, result).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordCheckpoint records a checkpoint resolution outcome
func (m *Metrics) RecordCheckpoint(outcome string) {
	if m == nil {
		return
	}
	m.CheckpointOutcomes.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an observer API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncObserverClients counts an attached observer socket
func (m *Metrics) IncObserverClients() {
	if m == nil {
		return
	}
	m.ObserverClients.Inc()
}

// DecObserverClients counts a detached observer socket
func (m *Metrics) DecObserverClients() {
	if m == nil {
		return
	}
	m.ObserverClients.Dec()
}
