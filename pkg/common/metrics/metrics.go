// Package metrics aids in defining Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates metrics and registers them with R.
type Registry struct {
	R prometheus.Registerer
}

// Default registers with the process-wide Prometheus registry.
func Default() Registry {
	return Registry{R: prometheus.DefaultRegisterer}
}

// NewCounter returns a new registered Counter.
func (mr Registry) NewCounter(c prometheus.CounterOpts) prometheus.Counter {
	pm := prometheus.NewCounter(c)
	mr.R.MustRegister(pm)
	return pm
}

// NewCounterVec returns a new registered CounterVec partitioned by labels.
func (mr Registry) NewCounterVec(c prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	pm := prometheus.NewCounterVec(c, labels)
	mr.R.MustRegister(pm)
	return pm
}

// NewGauge returns a new registered Gauge.
func (mr Registry) NewGauge(g prometheus.GaugeOpts) prometheus.Gauge {
	pm := prometheus.NewGauge(g)
	mr.R.MustRegister(pm)
	return pm
}

// NewSummary returns a new registered Summary.
func (mr Registry) NewSummary(s prometheus.SummaryOpts) prometheus.Summary {
	pm := prometheus.NewSummary(s)
	mr.R.MustRegister(pm)
	return pm
}

// NewHistogram returns a new registered Histogram.
func (mr Registry) NewHistogram(h prometheus.HistogramOpts) prometheus.Histogram {
	pm := prometheus.NewHistogram(h)
	mr.R.MustRegister(pm)
	return pm
}

// NewHistogramVec returns a new registered HistogramVec partitioned by labels.
func (mr Registry) NewHistogramVec(h prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	pm := prometheus.NewHistogramVec(h, labels)
	mr.R.MustRegister(pm)
	return pm
}
