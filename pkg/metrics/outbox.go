package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics counts outbox publisher outcomes per sink.
type OutboxMetrics struct {
	events *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by the publisher, by sink and result.",
	}, []string{"sink", "result"})
	reg.MustRegister(events)
	return &OutboxMetrics{events: events}
}

// IncEvent records one published, retried or terminal event.
func (m *OutboxMetrics) IncEvent(sink, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(sink), normalizeLabel(result)).Inc()
}
