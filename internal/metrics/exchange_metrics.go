package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics содержит метрики жизненного цикла офферов и ордеров.
type ExchangeMetrics struct {
	offersCreated prometheus.Counter
	offersUpdated prometheus.Counter
	ordersCreated prometheus.Counter

	statusTransitions *prometheus.CounterVec
	saveConflicts     prometheus.Counter

	requestDuration *prometheus.HistogramVec
}

// NewExchangeMetrics создаёт метрики в default registerer.
func NewExchangeMetrics() *ExchangeMetrics {
	return newExchangeMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newExchangeMetricsWithRegisterer(registerer prometheus.Registerer) *ExchangeMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ExchangeMetrics{
		offersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "p2p_offers_created_total",
			Help: "Total number of payment offers created",
		}),
		offersUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "p2p_offers_updated_total",
			Help: "Total number of payment offers updated",
		}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "p2p_orders_created_total",
			Help: "Total number of orders appended to offers",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "p2p_order_status_transitions_total",
			Help: "Total number of order status transitions grouped by target status",
		}, []string{"status"}),
		saveConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "p2p_offer_save_conflicts_total",
			Help: "Total number of optimistic locking conflicts retried on offer save",
		}),
		requestDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "p2p_request_duration_seconds",
			Help:    "Duration of HTTP requests grouped by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"route", "method"}),
	}
}

// RecordOfferCreated увеличивает счётчик созданных офферов.
func (m *ExchangeMetrics) RecordOfferCreated() {
	m.offersCreated.Inc()
}

// RecordOfferUpdated увеличивает счётчик обновлённых офферов.
func (m *ExchangeMetrics) RecordOfferUpdated() {
	m.offersUpdated.Inc()
}

// RecordOrderCreated увеличивает счётчик добавленных ордеров.
func (m *ExchangeMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordStatusTransition увеличивает счётчик переходов в указанный статус.
func (m *ExchangeMetrics) RecordStatusTransition(status string) {
	m.statusTransitions.WithLabelValues(status).Inc()
}

// RecordSaveConflict увеличивает счётчик конфликтов optimistic locking.
func (m *ExchangeMetrics) RecordSaveConflict() {
	m.saveConflicts.Inc()
}

// ObserveRequestDuration фиксирует длительность HTTP-запроса для роута.
func (m *ExchangeMetrics) ObserveRequestDuration(route, method string, d time.Duration) {
	m.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
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

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
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
