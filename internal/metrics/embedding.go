package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding holds embedding provider metrics.
type Embedding struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TokensTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewEmbedding creates unregistered embedding metrics.
func NewEmbedding() *Embedding {
	return &Embedding{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding provider requests",
			},
			[]string{"provider", "model", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "embedding_request_duration_seconds",
				Help:      "Embedding provider request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider", "model"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "embedding_tokens_total",
				Help:      "Total embedding tokens consumed",
			},
			[]string{"provider", "model", "type"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "embedding_errors_total",
				Help:      "Total embedding provider errors",
			},
			[]string{"provider", "model", "error_type"},
		),
	}
}

func (m *Embedding) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.RequestsTotal, m.RequestDuration, m.TokensTotal, m.ErrorsTotal}
}
