package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics содержит метрики публикации transactional outbox.
type OutboxMetrics struct {
	publishAttempts  *prometheus.CounterVec
	pendingRecords   prometheus.Gauge
	oldestPendingAge prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOutboxMetrics() *OutboxMetrics {
	return NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOutboxMetricsWithRegisterer регистрирует метрики в указанном registerer.
func NewOutboxMetricsWithRegisterer(registerer prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{
		publishAttempts: register(registerer, "retail_outbox_publish_attempts_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"})),
		pendingRecords: register(registerer, "retail_outbox_pending_records", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retail_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		})),
		oldestPendingAge: register(registerer, "retail_outbox_oldest_pending_age_seconds", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retail_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		})),
	}
}

// RecordPublishAttempt учитывает результат попытки публикации.
func (m *OutboxMetrics) RecordPublishAttempt(result string) {
	m.publishAttempts.WithLabelValues(result).Inc()
}

// RecordBacklog выставляет размер backlog и возраст самой старой записи.
func (m *OutboxMetrics) RecordBacklog(pending int, oldestPendingAge time.Duration) {
	m.pendingRecords.Set(float64(pending))
	if oldestPendingAge < 0 {
		oldestPendingAge = 0
	}
	m.oldestPendingAge.Set(oldestPendingAge.Seconds())
}
