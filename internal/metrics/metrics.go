package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kucoin_feed"

// Metrics holds the feed's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	framesReceived    *prometheus.CounterVec // by frame kind
	eventsClassified  *prometheus.CounterVec // by event kind
	failures          *prometheus.CounterVec // by failure class
	controlFramesSent *prometheus.CounterVec // by control type
	heartbeatFailures prometheus.Counter
	activeStreams     prometheus.Gauge
	bufferedItems     prometheus.Gauge
	bufferCapacity    prometheus.Gauge
	bufferGrowths     prometheus.Counter
	discardedItems    prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg
// disables metrics and returns a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "frames_received_total",
			Help:      "Inbound transport frames by frame kind",
		}, []string{"kind"}),

		eventsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "events_total",
			Help:      "Classified events delivered to the consumer by event kind",
		}, []string{"kind"}),

		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "failures_total",
			Help:      "Items that surfaced as errors by failure class",
		}, []string{"class"}),

		controlFramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "control_frames_sent_total",
			Help:      "Outbound control frames by type",
		}, []string{"type"}),

		heartbeatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "heartbeat_failures_total",
			Help:      "Heartbeat pings that could not be sent",
		}),

		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "active_streams",
			Help:      "Streams currently registered with the multiplexer",
		}),

		bufferedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "buffered_items",
			Help:      "Items waiting in the multiplexer buffer",
		}),

		bufferCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "buffer_capacity",
			Help:      "Current capacity of the multiplexer buffer",
		}),

		bufferGrowths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "buffer_growths_total",
			Help:      "Times the multiplexer buffer doubled its capacity",
		}),

		discardedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mux",
			Name:      "discarded_items_total",
			Help:      "Buffered items dropped because their stream was removed",
		}),
	}

	collectors := []prometheus.Collector{
		m.framesReceived,
		m.eventsClassified,
		m.failures,
		m.controlFramesSent,
		m.heartbeatFailures,
		m.activeStreams,
		m.bufferedItems,
		m.bufferCapacity,
		m.bufferGrowths,
		m.discardedItems,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FrameReceived counts one inbound frame.
func (m *Metrics) FrameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

// EventClassified counts one event handed to the consumer.
func (m *Metrics) EventClassified(kind string) {
	if m == nil {
		return
	}
	m.eventsClassified.WithLabelValues(kind).Inc()
}

// Failure counts one error surfaced by the multiplexer.
func (m *Metrics) Failure(class string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(class).Inc()
}

// ControlFrameSent counts one outbound control frame.
func (m *Metrics) ControlFrameSent(typ string) {
	if m == nil {
		return
	}
	m.controlFramesSent.WithLabelValues(typ).Inc()
}

func (m *Metrics) HeartbeatFailed() {
	if m == nil {
		return
	}
	m.heartbeatFailures.Inc()
}

func (m *Metrics) SetActiveStreams(n int) {
	if m == nil {
		return
	}
	m.activeStreams.Set(float64(n))
}

func (m *Metrics) SetBufferedItems(n int) {
	if m == nil {
		return
	}
	m.bufferedItems.Set(float64(n))
}

// SetBufferCapacity records the buffer's capacity. A capacity that keeps
// climbing means the consumer is falling behind.
func (m *Metrics) SetBufferCapacity(n int) {
	if m == nil {
		return
	}
	m.bufferCapacity.Set(float64(n))
}

// BufferGrown counts n capacity doublings.
func (m *Metrics) BufferGrown(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bufferGrowths.Add(float64(n))
}

func (m *Metrics) ItemDiscarded() {
	if m == nil {
		return
	}
	m.discardedItems.Inc()
}
