package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const _namespace = "spectra"

// Delivery outcomes.
const (
	OutcomeAcked     = "acked"
	OutcomeDropped   = "dropped"
	OutcomeRequeued  = "requeued"
	OutcomeExhausted = "exhausted"
)

type Metrics struct {
	Registry *prometheus.Registry

	Uploads            *prometheus.CounterVec
	Deliveries         *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	EventsPublished    *prometheus.CounterVec
}

// New builds the metric set on its own registry, so tests can create as many as they need.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		Uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: _namespace,
				Subsystem: "ingest",
				Name:      "uploads_total",
				Help:      "Uploads by result",
			},
			[]string{"result"},
		),

		Deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: _namespace,
				Subsystem: "consumer",
				Name:      "deliveries_total",
				Help:      "Broker deliveries by queue and outcome",
			},
			[]string{"queue", "outcome"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: _namespace,
				Subsystem: "consumer",
				Name:      "processing_duration_seconds",
				Help:      "Handler duration per delivery",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: _namespace,
				Subsystem: "broker",
				Name:      "published_total",
				Help:      "Published events by routing key and result",
			},
			[]string{"routing_key", "result"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Uploads,
		m.Deliveries,
		m.ProcessingDuration,
		m.EventsPublished,
	)

	return m
}

func (m *Metrics) ObserveUpload(result string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDelivery(queue, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(queue, outcome).Inc()
	m.ProcessingDuration.WithLabelValues(queue).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObservePublish(routingKey string, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(routingKey, result).Inc()
}
