package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "circles"

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	circlesActive   prometheus.Gauge
	connections     prometheus.Gauge
	circlesCreated  prometheus.Counter
	circlesEnded    *prometheus.CounterVec
	membersJoined   prometheus.Counter
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	staleUpdates    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		circlesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active",
			Help:      "Number of circles currently active",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections",
			Help:      "Number of live client connections",
		}),
		circlesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "created_total",
			Help:      "Total number of circles created",
		}),
		circlesEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ended_total",
			Help:      "Total number of circles ended by reason",
		}, []string{"reason"}),
		membersJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "members_joined_total",
			Help:      "Total number of successful joins",
		}),
		eventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_delivered_total",
			Help:      "Events queued to a connection, by event type",
		}, []string{"type"}),
		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dropped_total",
			Help:      "Events that could not be queued, by event type and reason",
		}, []string{"type", "reason"}),
		staleUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stale_updates_total",
			Help:      "Location updates ignored because the sender had no live binding",
		}),
	}
}

func (m *Metrics) circleCreated() {
	if m == nil {
		return
	}
	m.circlesCreated.Inc()
	m.circlesActive.Inc()
}

func (m *Metrics) circleEnded(reason string) {
	if m == nil {
		return
	}
	m.circlesEnded.WithLabelValues(reason).Inc()
	m.circlesActive.Dec()
}

func (m *Metrics) memberJoined() {
	if m == nil {
		return
	}
	m.membersJoined.Inc()
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) delivered(eventType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsDelivered.WithLabelValues(eventType).Add(float64(n))
}

func (m *Metrics) dropped(eventType, reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(eventType, reason).Inc()
}

func (m *Metrics) staleUpdate() {
	if m == nil {
		return
	}
	m.staleUpdates.Inc()
}
