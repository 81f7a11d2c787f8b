package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// QueueMetrics tracks the snapshot store and fan-out hot paths.
type QueueMetrics struct {
	snapshotWrites    *prometheus.CounterVec
	snapshotsSwept    prometheus.Counter
	publishes         *prometheus.CounterVec
	deliveries        *prometheus.CounterVec
	streamSubscribers prometheus.Gauge
}

var (
	queueMetricsOnce sync.Once
	queueMetrics     *QueueMetrics
)

func Queue() *QueueMetrics {
	return QueueWithConfig(Config{})
}

func QueueWithConfig(cfg Config) *QueueMetrics {
	queueMetricsOnce.Do(func() {
		queueMetrics = newQueueMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return queueMetrics
}

func ResetQueueMetricsForTest() {
	queueMetricsOnce = sync.Once{}
	queueMetrics = nil
}

func newQueueMetrics(registerer prometheus.Registerer, cfg Config) *QueueMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "tunedeck"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	snapshotWrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tunedeck_queue_snapshot_writes_total",
			Help:        "Snapshot writes by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // accepted | superseded
	)

	snapshotsSwept := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "tunedeck_queue_snapshots_swept_total",
			Help:        "Expired snapshot slots reclaimed by the sweeper.",
			ConstLabels: constLabels,
		},
	)

	publishes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tunedeck_queue_publishes_total",
			Help:        "Snapshot publish calls by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // delivered | gated | idle
	)

	deliveries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tunedeck_queue_deliveries_total",
			Help:        "Per-subscriber delivery attempts by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // sent | dropped
	)

	streamSubscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "tunedeck_queue_stream_subscribers",
			Help:        "Currently joined realtime subscribers.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		snapshotWrites,
		snapshotsSwept,
		publishes,
		deliveries,
		streamSubscribers,
	)

	return &QueueMetrics{
		snapshotWrites:    snapshotWrites,
		snapshotsSwept:    snapshotsSwept,
		publishes:         publishes,
		deliveries:        deliveries,
		streamSubscribers: streamSubscribers,
	}
}

func (m *QueueMetrics) IncWrite(result string) {
	if m == nil {
		return
	}
	m.snapshotWrites.WithLabelValues(result).Inc()
}

func (m *QueueMetrics) AddSwept(count int) {
	if m == nil {
		return
	}
	m.snapshotsSwept.Add(float64(count))
}

func (m *QueueMetrics) IncPublish(result string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(result).Inc()
}

func (m *QueueMetrics) IncDelivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *QueueMetrics) SetSubscribers(count int) {
	if m == nil {
		return
	}
	m.streamSubscribers.Set(float64(count))
}

func (m *QueueMetrics) IncSubscribers() {
	if m == nil {
		return
	}
	m.streamSubscribers.Inc()
}

func (m *QueueMetrics) DecSubscribers() {
	if m == nil {
		return
	}
	m.streamSubscribers.Dec()
}
