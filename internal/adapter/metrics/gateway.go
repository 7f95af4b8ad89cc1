package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics covers WebSocket connections, room membership and frame handling.
type GatewayMetrics struct {
	ActiveConnections  *prometheus.GaugeVec
	ActiveRooms        prometheus.Gauge
	RejectedHandshakes *prometheus.CounterVec
	FramesTotal        *prometheus.CounterVec
	FrameDuration      *prometheus.HistogramVec
	PublishesTotal     *prometheus.CounterVec
	SlowClientsEvicted prometheus.Counter
	MessageSendSeconds prometheus.Histogram
	PingFailures       prometheus.Counter
}

// NewGatewayMetrics creates and registers gateway metrics on the given registry.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		ActiveConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections, by room kind.",
		}, []string{"room_kind"}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "active",
			Help:      "Number of rooms with at least one local member.",
		}),
		RejectedHandshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_handshakes_total",
			Help:      "Total number of refused WebSocket handshakes, by reason.",
		}, []string{"reason"}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "frames_total",
			Help:      "Total number of inbound frames, by room kind and outcome.",
		}, []string{"room_kind", "outcome"}),
		FrameDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "frame_duration_seconds",
			Help:      "Time spent handling one inbound frame, by room kind.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"room_kind"}),
		PublishesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "publishes_total",
			Help:      "Total number of room publishes, by result.",
		}, []string{"result"}),
		SlowClientsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "slow_clients_evicted_total",
			Help:      "Total number of clients disconnected for a full send buffer.",
		}),
		MessageSendSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "message_send_duration_seconds",
			Help:      "Time to write one frame to a WebSocket connection.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Total number of failed WebSocket pings.",
		}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ActiveRooms,
		m.RejectedHandshakes,
		m.FramesTotal,
		m.FrameDuration,
		m.PublishesTotal,
		m.SlowClientsEvicted,
		m.MessageSendSeconds,
		m.PingFailures,
	)
	return m
}
