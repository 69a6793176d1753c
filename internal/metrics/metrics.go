package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 激活与校验的计数器
type Metrics struct {
	registry      *prometheus.Registry
	activations   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_activations_total",
			Help: "Activate calls by result code.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "license_verifications_total",
			Help: "Verify calls by result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "license_operation_duration_seconds",
			Help:    "Ledger operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		m.activations,
		m.verifications,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveActivate(result string, took time.Duration) {
	m.activations.WithLabelValues(result).Inc()
	m.latency.WithLabelValues("activate").Observe(took.Seconds())
}

func (m *Metrics) ObserveVerify(result string, took time.Duration) {
	m.verifications.WithLabelValues(result).Inc()
	m.latency.WithLabelValues("verify").Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler /metrics 端点
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
