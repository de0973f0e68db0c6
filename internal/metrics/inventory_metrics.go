package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics содержит метрики складского учёта и приёма заказов.
type InventoryMetrics struct {
	articlesRegistered prometheus.Counter
	stockUnits         *prometheus.GaugeVec

	// Исполнение заказов складом
	fills        *prometheus.CounterVec
	fillDuration prometheus.Histogram

	// Приём заказов сервисом
	ordersAccepted prometheus.Counter
	ordersRejected *prometheus.CounterVec
	acceptedValue  prometheus.Counter
	acceptedVAT    prometheus.Counter
}

// NewInventoryMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewInventoryMetrics() *InventoryMetrics {
	return NewInventoryMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewInventoryMetricsWithRegisterer регистрирует метрики в указанном registerer.
func NewInventoryMetricsWithRegisterer(registerer prometheus.Registerer) *InventoryMetrics {
	return &InventoryMetrics{
		articlesRegistered: register(registerer, "retail_articles_registered_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_articles_registered_total",
			Help: "Total number of articles registered in inventory",
		})),
		stockUnits: register(registerer, "retail_stock_units", prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retail_stock_units",
			Help: "Units in stock per article",
		}, []string{"article_id"})),
		fills: register(registerer, "retail_inventory_fills_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_inventory_fills_total",
			Help: "Total number of fill attempts grouped by result",
		}, []string{"result"})),
		fillDuration: register(registerer, "retail_fill_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retail_fill_duration_seconds",
			Help:    "Duration of inventory fill operations in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		})),
		ordersAccepted: register(registerer, "retail_orders_accepted_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_orders_accepted_total",
			Help: "Total number of orders accepted and filled",
		})),
		ordersRejected: register(registerer, "retail_orders_rejected_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_orders_rejected_total",
			Help: "Total number of rejected orders grouped by reason",
		}, []string{"reason"})),
		acceptedValue: register(registerer, "retail_orders_value_minor_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_orders_value_minor_total",
			Help: "Sum of accepted order values in minor currency units",
		})),
		acceptedVAT: register(registerer, "retail_orders_vat_minor_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_orders_vat_minor_total",
			Help: "Sum of VAT included in accepted orders in minor currency units",
		})),
	}
}

// RecordArticleRegistered увеличивает счётчик зарегистрированных артикулов.
func (m *InventoryMetrics) RecordArticleRegistered() {
	m.articlesRegistered.Inc()
}

// RecordStockLevel выставляет текущий остаток артикула.
func (m *InventoryMetrics) RecordStockLevel(articleID string, units int) {
	m.stockUnits.WithLabelValues(articleID).Set(float64(units))
}

// RecordFill учитывает попытку исполнения заказа складом.
func (m *InventoryMetrics) RecordFill(filled bool, duration time.Duration) {
	result := "rejected"
	if filled {
		result = "filled"
	}
	m.fills.WithLabelValues(result).Inc()
	m.fillDuration.Observe(duration.Seconds())
}

// RecordOrderAccepted учитывает принятый заказ и его суммы.
func (m *InventoryMetrics) RecordOrderAccepted(valueMinor, vatMinor int64) {
	m.ordersAccepted.Inc()
	m.acceptedValue.Add(float64(valueMinor))
	m.acceptedVAT.Add(float64(vatMinor))
}

// RecordOrderRejected учитывает отклонённый заказ.
func (m *InventoryMetrics) RecordOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}
