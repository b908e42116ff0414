// Package telemetry exports engine outcomes as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xdao.co/custodian/ledger"
)

const outcomeOK = "ok"

// Collector implements ledger.Observer.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	rejections *prometheus.CounterVec
}

var _ ledger.Observer = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "custodian"
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by outcome (ok or the rejection code)",
		},
		[]string{"op", "outcome"},
	)
	c.rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Rejected ledger operations by error kind",
		},
		[]string{"op", "kind"},
	)
	c.latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Time spent inside the ledger transaction",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"op"},
	)

	c.registry.MustRegister(c.operations, c.rejections, c.latency)
	c.registry.MustRegister(prometheus.NewGoCollector())
	return c
}

func (c *Collector) Observe(op ledger.Op, code ledger.Code, elapsed time.Duration) {
	outcome := outcomeOK
	if code != "" {
		outcome = string(code)
		c.rejections.WithLabelValues(string(op), string(ledger.KindOf(code))).Inc()
	}
	c.operations.WithLabelValues(string(op), outcome).Inc()
	c.latency.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
