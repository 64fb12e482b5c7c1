package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eeg"

// Metrics holds the Prometheus collectors for the ingestion path.
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
type Metrics struct {
	connectionsActive   prometheus.Gauge
	connectionsRejected *prometheus.CounterVec
	messagesReceived    *prometheus.CounterVec
	protocolErrors      *prometheus.CounterVec

	bufferAppends   prometheus.Counter
	bufferEvictions prometheus.Counter
	bufferSessions  prometheus.Gauge

	predictions       prometheus.Counter
	predictionLatency prometheus.Histogram

	batcherFlushed  *prometheus.CounterVec
	batcherFailures *prometheus.CounterVec
	batcherPending  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connections_active",
			Help:      "Number of open producer connections",
		}),
		connectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "connections_rejected_total",
			Help:      "Producer connections closed before becoming active, by reason",
		}, []string{"reason"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "messages_total",
			Help:      "Frames received from producers, by frame type",
		}, []string{"type"}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "protocol_errors_total",
			Help:      "Frames answered with an in-band error, by kind",
		}, []string{"kind"}),
		bufferAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "appends_total",
			Help:      "Records appended to session stream buffers",
		}),
		bufferEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "evictions_total",
			Help:      "Records evicted from full session stream buffers",
		}),
		bufferSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "sessions",
			Help:      "Sessions with a live stream buffer",
		}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "predictions_total",
			Help:      "Workload predictions produced",
		}),
		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "prediction_seconds",
			Help:      "Time spent classifying one raw block",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		batcherFlushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "flushed_total",
			Help:      "Records written to the durable store, by queue",
		}, []string{"queue"}),
		batcherFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "flush_failures_total",
			Help:      "Failed batch writes, by queue",
		}, []string{"queue"}),
		batcherPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batcher",
			Name:      "pending",
			Help:      "Records waiting for the next flush, by queue",
		}, []string{"queue"}),
	}

	collectors := []prometheus.Collector{
		m.connectionsActive, m.connectionsRejected, m.messagesReceived, m.protocolErrors,
		m.bufferAppends, m.bufferEvictions, m.bufferSessions,
		m.predictions, m.predictionLatency,
		m.batcherFlushed, m.batcherFailures, m.batcherPending,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) ConnectionRejected(reason string) {
	if m == nil {
		return
	}
	m.connectionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) MessageReceived(frameType string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(frameType).Inc()
}

func (m *Metrics) ProtocolError(kind string) {
	if m == nil {
		return
	}
	m.protocolErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) BufferAppended(evicted bool) {
	if m == nil {
		return
	}
	m.bufferAppends.Inc()
	if evicted {
		m.bufferEvictions.Inc()
	}
}

func (m *Metrics) BufferSessions(n int) {
	if m == nil {
		return
	}
	m.bufferSessions.Set(float64(n))
}

func (m *Metrics) PredictionObserved(seconds float64) {
	if m == nil {
		return
	}
	m.predictions.Inc()
	m.predictionLatency.Observe(seconds)
}

func (m *Metrics) BatchFlushed(queue string, n int) {
	if m == nil {
		return
	}
	m.batcherFlushed.WithLabelValues(queue).Add(float64(n))
}

func (m *Metrics) BatchFailed(queue string) {
	if m == nil {
		return
	}
	m.batcherFailures.WithLabelValues(queue).Inc()
}

func (m *Metrics) Pending(queue string, n int) {
	if m == nil {
		return
	}
	m.batcherPending.WithLabelValues(queue).Set(float64(n))
}
