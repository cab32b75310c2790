// Package metrics defines the Prometheus collectors of catalograg.
// Collectors are created per Set and registered explicitly; nothing touches
// the global registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "catalograg"

// Set groups all collectors of one process or embedded pipeline.
type Set struct {
	Embedding *Embedding
	Pipeline  *Pipeline
	HTTP      *HTTP
}

// New creates an unregistered metric set.
func New() *Set {
	return &Set{
		Embedding: NewEmbedding(),
		Pipeline:  NewPipeline(),
		HTTP:      NewHTTP(),
	}
}

// Register registers every collector of the set with reg.
func (s *Set) Register(reg prometheus.Registerer) error {
	var all []prometheus.Collector
	all = append(all, s.Embedding.collectors()...)
	all = append(all, s.Pipeline.collectors()...)
	all = append(all, s.HTTP.collectors()...)

	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}
	return nil
}
