package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline holds retrieval pipeline metrics.
type Pipeline struct {
	// CacheTotal counts cache outcomes by cache name and result (hit/miss/evict/expire).
	CacheTotal *prometheus.CounterVec
	// StageDuration observes per-stage latency (embed/extract/search/rescore/rerank).
	StageDuration *prometheus.HistogramVec
	// ExtractionTotal counts extractor calls by status.
	ExtractionTotal *prometheus.CounterVec
	// RerankTotal counts reranker calls by status.
	RerankTotal *prometheus.CounterVec
	// RetrievalsTotal counts retrieval requests by outcome.
	RetrievalsTotal *prometheus.CounterVec
	// DegradationsTotal counts soft failures by stage.
	DegradationsTotal *prometheus.CounterVec
}

// NewPipeline creates unregistered pipeline metrics.
func NewPipeline() *Pipeline {
	return &Pipeline{
		CacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cache_total",
				Help:      "Cache lookups, evictions and expirations",
			},
			[]string{"cache", "result"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "retrieval_stage_duration_seconds",
				Help:      "Retrieval stage duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"stage"},
		),
		ExtractionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "extraction_requests_total",
				Help:      "Total attribute extraction requests",
			},
			[]string{"status"},
		),
		RerankTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "rerank_requests_total",
				Help:      "Total rerank requests",
			},
			[]string{"status"},
		),
		RetrievalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "retrievals_total",
				Help:      "Total retrieval requests",
			},
			[]string{"status"},
		),
		DegradationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "degradations_total",
				Help:      "Soft failures that degraded a retrieval",
			},
			[]string{"stage"},
		),
	}
}

func (m *Pipeline) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CacheTotal, m.StageDuration, m.ExtractionTotal,
		m.RerankTotal, m.RetrievalsTotal, m.DegradationsTotal,
	}
}
