// Package metrics instruments the protocol engine with Prometheus
// collectors: segment counts, retransmissions, active connections and
// backlog depth.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the collectors one Engine registers and updates. Callers
// that don't want Prometheus wiring can use NewUnregistered, which still
// satisfies every Engine call site but registers only with a private
// registry that nothing exposes.
type Metrics struct {
	SegmentsSent       prometheus.Counter
	SegmentsReceived   prometheus.Counter
	SegmentsDropped    *prometheus.CounterVec
	Retransmissions    prometheus.Counter
	ConnectionsAborted prometheus.Counter
	ActiveConnections  prometheus.Gauge
	ListenBacklogDepth *prometheus.GaugeVec
}

// New constructs Metrics and registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SegmentsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toytcp",
			Name:      "segments_sent_total",
			Help:      "TCP segments transmitted, including retransmissions.",
		}),
		SegmentsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toytcp",
			Name:      "segments_received_total",
			Help:      "TCP segments accepted by the receive dispatcher.",
		}),
		SegmentsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toytcp",
			Name:      "segments_dropped_total",
			Help:      "TCP segments discarded by the receive dispatcher, labeled by reason.",
		}, []string{"reason"}),
		Retransmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toytcp",
			Name:      "retransmissions_total",
			Help:      "Segments re-sent by the retransmission timer.",
		}),
		ConnectionsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toytcp",
			Name:      "connections_aborted_total",
			Help:      "Connections torn down after exhausting the retransmission limit.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "toytcp",
			Name:      "active_connections",
			Help:      "Sockets currently past the handshake and not yet closed.",
		}),
		ListenBacklogDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "toytcp",
			Name:      "listen_backlog_depth",
			Help:      "Established children awaiting accept, per listening socket.",
		}, []string{"listener"}),
	}
	reg.MustRegister(m.SegmentsSent, m.SegmentsReceived, m.SegmentsDropped,
		m.Retransmissions, m.ConnectionsAborted, m.ActiveConnections, m.ListenBacklogDepth)
	return m
}

// NewUnregistered returns Metrics backed by live collectors registered only
// with a fresh private registry, never the default one, for use in tests
// and examples that don't want to stand up a Prometheus endpoint.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
