package observability

import "github.com/prometheus/client_golang/prometheus"

// Drop reasons.
const (
	ReasonMalformed       = "malformed"
	ReasonTargetOffline   = "target_offline"
	ReasonUnknownSession  = "unknown_session"
	ReasonAnswerDuplicate = "answer_duplicate"
	ReasonBackpressure    = "backpressure"
	ReasonEncode          = "encode"
	ReasonRateLimited     = "rate_limited"
)

// Metrics groups the relay counters. Every silent drop goes through Drop so an
// operator can tell normal churn from a systemic failure.
type Metrics struct {
	Events          *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	Drops           *prometheus.CounterVec
	RegisteredUsers prometheus.Gauge
	OpenConnections prometheus.Gauge
	Sessions        prometheus.Gauge
	Evictions       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tandem",
			Name:      "events_total",
			Help:      "Inbound signaling events by name.",
		}, []string{"event"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tandem",
			Name:      "deliveries_total",
			Help:      "Outbound events queued to a connection, by name.",
		}, []string{"event"}),
		Drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tandem",
			Name:      "drops_total",
			Help:      "Events dropped without delivery, by reason.",
		}, []string{"reason"}),
		RegisteredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tandem",
			Name:      "registered_users",
			Help:      "Users currently mapped to a live connection.",
		}),
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tandem",
			Name:      "open_connections",
			Help:      "Open signaling connections, registered or not.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tandem",
			Name:      "negotiation_sessions",
			Help:      "Negotiation sessions held in memory.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tandem",
			Name:      "session_evictions_total",
			Help:      "Negotiation sessions evicted after idling past the TTL or over capacity.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Events,
			m.Deliveries,
			m.Drops,
			m.RegisteredUsers,
			m.OpenConnections,
			m.Sessions,
			m.Evictions,
		)
	}
	return m
}

func (m *Metrics) Event(name string)     { m.Events.WithLabelValues(name).Inc() }
func (m *Metrics) Delivered(name string) { m.Deliveries.WithLabelValues(name).Inc() }
func (m *Metrics) Drop(reason string)    { m.Drops.WithLabelValues(reason).Inc() }
