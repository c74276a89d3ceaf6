// Package prometheus exports service metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/imgdedup"
)

const namespace = "imgdedup"

// Collector implements imgdedup.MetricsCollector.
type Collector struct {
	opLatency *prometheus.HistogramVec
	codes     *prometheus.CounterVec
	checks    *prometheus.CounterVec
}

var _ imgdedup.MetricsCollector = (*Collector)(nil)

// New registers the service metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		opLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of service and store operations",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"op", "status"}),
		codes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codes_added_total",
			Help:      "Total number of fingerprints added to collections",
		}, []string{"kind"}),
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of duplicate checks by outcome",
		}, []string{"kind", "result"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAdd implements imgdedup.MetricsCollector.
func (c *Collector) RecordAdd(kind string, codes int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("add", status(err)).Observe(d.Seconds())
	if err == nil {
		c.codes.WithLabelValues(kind).Add(float64(codes))
	}
}

// RecordCheck implements imgdedup.MetricsCollector.
func (c *Collector) RecordCheck(kind string, duplicated bool, d time.Duration, err error) {
	c.opLatency.WithLabelValues("check", status(err)).Observe(d.Seconds())

	result := "unique"
	switch {
	case err != nil:
		result = "error"
	case duplicated:
		result = "duplicate"
	}
	c.checks.WithLabelValues(kind, result).Inc()
}

// RecordLoad implements imgdedup.MetricsCollector.
func (c *Collector) RecordLoad(d time.Duration, err error) {
	c.opLatency.WithLabelValues("load", status(err)).Observe(d.Seconds())
}

// RecordSave implements imgdedup.MetricsCollector.
func (c *Collector) RecordSave(d time.Duration, err error) {
	c.opLatency.WithLabelValues("save", status(err)).Observe(d.Seconds())
}
