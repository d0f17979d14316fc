package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics tracks socket gateway activity.
type GatewayMetrics struct {
	connected *prometheus.GaugeVec
	events    *prometheus.CounterVec
	evictions prometheus.Counter
	recovered prometheus.Counter
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	connected := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_connected",
		Help: "Currently connected actors by kind.",
	}, []string{"kind"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_total",
		Help: "Inbound socket events by name and outcome.",
	}, []string{"event", "outcome"})
	evictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_session_evictions_total",
		Help: "Connections evicted by a newer session for the same identity.",
	})
	recovered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_recoveries_total",
		Help: "Reconnects that restored transaction memberships.",
	})
	reg.MustRegister(connected, events, evictions, recovered)
	return &GatewayMetrics{
		connected: connected,
		events:    events,
		evictions: evictions,
		recovered: recovered,
	}
}

// SetConnected records the connected gauge for an actor kind.
func (g *GatewayMetrics) SetConnected(kind string, count int) {
	if g == nil || g.connected == nil {
		return
	}
	g.connected.WithLabelValues(kind).Set(float64(count))
}

// IncEvent counts one inbound event with its outcome ("ok" or "error").
func (g *GatewayMetrics) IncEvent(event, outcome string) {
	if g == nil || g.events == nil {
		return
	}
	g.events.WithLabelValues(event, outcome).Inc()
}

// IncEviction counts one replaced session.
func (g *GatewayMetrics) IncEviction() {
	if g == nil || g.evictions == nil {
		return
	}
	g.evictions.Inc()
}

// IncRecovery counts one successful reconnect recovery.
func (g *GatewayMetrics) IncRecovery() {
	if g == nil || g.recovered == nil {
		return
	}
	g.recovered.Inc()
}
