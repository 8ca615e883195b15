package outbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics del outbox, etiquetadas por contexto acotado. Una instancia se comparte entre dispatchers.
type Metrics struct {
	Published     *prometheus.CounterVec
	Failed        *prometheus.CounterVec
	DeadLettered  *prometheus.CounterVec
	Captured      *prometheus.CounterVec
	Cleaned       *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
	Pending       *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hexashop_outbox_published_total",
			Help: "Outbox records published and marked Processed",
		}, []string{"context", "type"}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hexashop_outbox_publish_failures_total",
			Help: "Failed publish attempts that left the record Pending",
		}, []string{"context", "type"}),
		DeadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hexashop_outbox_dead_lettered_total",
			Help: "Records moved to Failed after exhausting attempts",
		}, []string{"context", "type"}),
		Captured: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hexashop_outbox_captured_total",
			Help: "Outbox records written by the pre-commit hook",
		}, []string{"context", "type"}),
		Cleaned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hexashop_outbox_cleaned_total",
			Help: "Processed records removed by the cleaner",
		}, []string{"context"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hexashop_outbox_batch_duration_seconds",
			Help:    "Duration of one dispatch cycle",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"context"}),
		Pending: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hexashop_outbox_pending",
			Help: "Records currently Pending",
		}, []string{"context"}),
	}
}

// Los métodos aceptan receptor nil para que las métricas sean opcionales.

func (m *Metrics) published(ctxName, typ string) {
	if m != nil {
		m.Published.WithLabelValues(ctxName, typ).Inc()
	}
}

func (m *Metrics) failed(ctxName, typ string) {
	if m != nil {
		m.Failed.WithLabelValues(ctxName, typ).Inc()
	}
}

func (m *Metrics) deadLettered(ctxName, typ string) {
	if m != nil {
		m.DeadLettered.WithLabelValues(ctxName, typ).Inc()
	}
}

func (m *Metrics) captured(ctxName, typ string) {
	if m != nil {
		m.Captured.WithLabelValues(ctxName, typ).Inc()
	}
}

func (m *Metrics) cleaned(ctxName string, n int64) {
	if m != nil && n > 0 {
		m.Cleaned.WithLabelValues(ctxName).Add(float64(n))
	}
}

func (m *Metrics) observeBatch(ctxName string, d time.Duration) {
	if m != nil {
		m.BatchDuration.WithLabelValues(ctxName).Observe(d.Seconds())
	}
}

func (m *Metrics) setPending(ctxName string, n int64) {
	if m != nil {
		m.Pending.WithLabelValues(ctxName).Set(float64(n))
	}
}
