package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций над заказами.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated   prometheus.Counter
	ordersDelivered prometheus.Counter
	ordersCanceled  prometheus.Counter
	ordersRejected  prometheus.Counter

	// Гистограмма времени выполнения по операциям
	opDuration *prometheus.HistogramVec

	// Счётчики событий журнала и outbox
	historyEvents prometheus.Counter
	outboxEvents  prometheus.Counter

	// Gauge открытых заказов
	pendingOrders prometheus.Gauge
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDelivered: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_orders_delivered_total",
			Help: "Total number of orders marked as delivered",
		}),
		ordersCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_orders_canceled_total",
			Help: "Total number of orders canceled with stock restored",
		}),
		ordersRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_orders_rejected_total",
			Help: "Total number of orders rejected due to insufficient stock",
		}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "backoffice_order_op_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		historyEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_order_history_events_total",
			Help: "Total number of order history events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		pendingOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "backoffice_pending_orders",
			Help: "Number of currently open orders holding stock",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
	m.pendingOrders.Inc()
}

// RecordOrderDelivered увеличивает счётчик доставленных заказов.
func (m *OrderMetrics) RecordOrderDelivered() {
	m.ordersDelivered.Inc()
	m.pendingOrders.Dec()
}

// RecordOrderCanceled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordOrderCanceled() {
	m.ordersCanceled.Inc()
	m.pendingOrders.Dec()
}

// RecordOrderRejected увеличивает счётчик заказов, отклонённых из-за нехватки остатка.
func (m *OrderMetrics) RecordOrderRejected() {
	m.ordersRejected.Inc()
}

// RecordOrderDeleted уменьшает количество открытых заказов без смены статуса.
func (m *OrderMetrics) RecordOrderDeleted() {
	m.pendingOrders.Dec()
}

// RecordOpDuration записывает время выполнения операции.
func (m *OrderMetrics) RecordOpDuration(op string, duration time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHistoryEvent увеличивает счётчик событий журнала заказов.
func (m *OrderMetrics) RecordHistoryEvent() {
	m.historyEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
