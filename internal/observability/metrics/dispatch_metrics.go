package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks the asynchronous provisioning queue.
type DispatchMetrics struct {
	queueDepth prometheus.Gauge
	enqueued   *prometheus.CounterVec
	dropped    prometheus.Counter
}

var (
	dispatchMetricsOnce sync.Once
	dispatchMetrics     *DispatchMetrics
)

// Dispatch returns the singleton dispatch metrics registry.
func Dispatch() *DispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetrics = newDispatchMetrics(prometheus.DefaultRegisterer, Config{})
	})
	return dispatchMetrics
}

func newDispatchMetrics(registerer prometheus.Registerer, cfg Config) *DispatchMetrics {
	constLabels := serviceLabels(cfg)
	return &DispatchMetrics{
		queueDepth: registerOrExisting(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "runway_provisioning_queue_depth",
			Help:        "Provisioning jobs waiting in the in-process queue.",
			ConstLabels: constLabels,
		})),
		enqueued: registerOrExisting(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "runway_provisioning_enqueued_total",
			Help:        "Provisioning jobs accepted by the dispatcher backend.",
			ConstLabels: constLabels,
		}, []string{"backend"})),
		dropped: registerOrExisting(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "runway_provisioning_dropped_total",
			Help:        "Provisioning jobs rejected because the queue was full or closed.",
			ConstLabels: constLabels,
		})),
	}
}

func (m *DispatchMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *DispatchMetrics) IncEnqueued(backend string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(backend).Inc()
}

func (m *DispatchMetrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
