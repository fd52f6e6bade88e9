// Package metrics exposes Prometheus counters for the API and the notifier.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eyecare"

type Metrics struct {
	reg *prometheus.Registry

	invoices        prometheus.Counter
	notifications   *prometheus.CounterVec
	lowStock        prometheus.Gauge
	trackingLookups *prometheus.CounterVec
	events          *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector on a private registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		invoices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "invoices_generated_total",
			Help: "Invoices issued.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_total",
			Help: "Notifications handed to a provider, by resulting status.",
		}, []string{"provider", "status"}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "low_stock_items",
			Help: "Catalog entries at or below their reorder threshold at the last check.",
		}),
		trackingLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tracking_lookups_total",
			Help: "Order tracking lookups, by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_consumed_total",
			Help: "Order events seen by the notifier, by type and outcome.",
		}, []string{"type", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.invoices, m.notifications, m.lowStock, m.trackingLookups, m.events, m.httpDuration,
	)
	return m
}

func (m *Metrics) InvoiceGenerated() {
	if m == nil {
		return
	}
	m.invoices.Inc()
}

func (m *Metrics) Notification(provider, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) SetLowStock(n int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(n))
}

// TrackingLookup counts one lookup; result is found, not_found, missing_input or error.
func (m *Metrics) TrackingLookup(result string) {
	if m == nil {
		return
	}
	m.trackingLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Event(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
