package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShopMetrics records the counters the dashboard cares about.
type ShopMetrics struct {
	registry      *prometheus.Registry
	ordersCreated prometheus.Counter
	ordersByState *prometheus.CounterVec
	tokensIssued  *prometheus.CounterVec
	filesRemoved  prometheus.Counter
}

// New registers the shop metrics on a fresh registry.
func New() *ShopMetrics {
	registry := prometheus.NewRegistry()

	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Print orders accepted at intake.",
	})
	ordersByState := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by target state.",
	}, []string{"status"})
	tokensIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokens_issued_total",
		Help: "Customer tokens issued, split by fresh issue vs rotation.",
	}, []string{"kind"})
	filesRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_files_removed_total",
		Help: "Files detached from pending orders.",
	})

	registry.MustRegister(ordersCreated, ordersByState, tokensIssued, filesRemoved)

	return &ShopMetrics{
		registry:      registry,
		ordersCreated: ordersCreated,
		ordersByState: ordersByState,
		tokensIssued:  tokensIssued,
		filesRemoved:  filesRemoved,
	}
}

// Handler serves the prometheus scrape endpoint.
func (m *ShopMetrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncOrderCreated counts an accepted order.
func (m *ShopMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// IncOrderTransition counts a transition into the given status.
func (m *ShopMetrics) IncOrderTransition(status string) {
	if m == nil || m.ordersByState == nil {
		return
	}
	m.ordersByState.WithLabelValues(status).Inc()
}

// IncTokenIssued counts a token grant; kind is "new" or "rotated".
func (m *ShopMetrics) IncTokenIssued(kind string) {
	if m == nil || m.tokensIssued == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// IncFileRemoved counts a detached file.
func (m *ShopMetrics) IncFileRemoved() {
	if m == nil || m.filesRemoved == nil {
		return
	}
	m.filesRemoved.Inc()
}
