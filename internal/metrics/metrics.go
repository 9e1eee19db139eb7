// Package metrics holds the Prometheus collectors for the MAGMA
// pipeline, registered against an injected Registerer so tests can use
// their own registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Stage names the pipeline phases timed by StageDuration.
const (
	StageSemanticSearch  = "semantic_search"
	StageSeedExtraction  = "seed_extraction"
	StageExpandEntity    = "expand_entity"
	StageExpandTemporal  = "expand_temporal"
	StageExpandCausal    = "expand_causal"
	StageMerge           = "merge"
	StageLinearize       = "linearize"
)

// Metrics holds the MAGMA executor's Prometheus collectors.
type Metrics struct {
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	collectors []prometheus.Collector
	registerer prometheus.Registerer
}

// NewMetrics creates and registers the MAGMA executor's collectors
// against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "magma_stage_duration_seconds",
		Help:    "Duration of each MAGMA pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	stageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "magma_stage_errors_total",
		Help: "Total number of MAGMA pipeline stage failures.",
	}, []string{"stage"})

	collectors := []prometheus.Collector{stageDuration, stageErrors}
	reg.MustRegister(collectors...)

	return &Metrics{
		StageDuration: stageDuration,
		StageErrors:   stageErrors,
		collectors:    collectors,
		registerer:    reg,
	}
}

// Unregister removes every collector from the registry used at
// construction time.
func (m *Metrics) Unregister() {
	if m.registerer == nil {
		return
	}
	for _, c := range m.collectors {
		m.registerer.Unregister(c)
	}
}
