package analysis

import (
	"github.com/prometheus/client_golang/prometheus"

	metricsutil "github.com/duynguyendang/relpat/pkg/common/metrics"
)

type analysisMetrics struct {
	classifications      *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
	phaseDurationSeconds *prometheus.HistogramVec
	candidates           prometheus.Histogram
	tripleCount          prometheus.Histogram
}

var metrics analysisMetrics

func init() {
	mr := metricsutil.Default()
	metrics = analysisMetrics{
		classifications: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relpat",
			Subsystem: "analysis",
			Name:      "classifications_total",
			Help:      `Number of relation classification requests, by how the pattern table was obtained (cached or computed).`,
		}, []string{"source"}),
		cacheLookups: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relpat",
			Subsystem: "analysis",
			Name:      "cache_lookups_total",
			Help: `Number of pattern table cache lookups, by result.

"error" counts unreadable entries; those are recomputed.
`,
		}, []string{"result"}),
		phaseDurationSeconds: mr.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relpat",
			Subsystem: "analysis",
			Name:      "phase_duration_seconds",
			Help: `Time spent in each phase of pattern mining.

Composition evaluation is expected to dominate on large relation vocabularies.
`,
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		candidates: mr.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relpat",
			Subsystem: "analysis",
			Name:      "composition_candidates",
			Help:      `Number of relation pairs passing the composition pre-filter per run.`,
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		tripleCount: mr.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relpat",
			Subsystem: "analysis",
			Name:      "input_triples",
			Help:      `Number of triples analyzed per classification request.`,
			Buckets:   prometheus.ExponentialBuckets(16, 4, 12),
		}),
	}
}
