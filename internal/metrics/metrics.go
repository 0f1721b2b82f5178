// Package metrics provides Prometheus metrics for the captive ingestion core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ingestion core.
// A nil *Metrics is valid and turns every recording method into a no-op, so
// the library can run without metrics wired up.
type Metrics struct {
	// Frame metrics
	FramesRead      *prometheus.CounterVec
	BytesRead       *prometheus.CounterVec
	LedgersIngested *prometheus.CounterVec
	LastLedgerSeq   *prometheus.GaugeVec

	// Error metrics
	DecodeErrors    *prometheus.CounterVec
	TruncatedFrames *prometheus.CounterVec
	PipeErrors      *prometheus.CounterVec

	// Node metrics
	NodeLaunches *prometheus.CounterVec
	NodeFailures *prometheus.CounterVec

	// Timing metrics
	FrameReadDuration *prometheus.HistogramVec
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "captive_ingest"
	}

	m := &Metrics{
		FramesRead: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_read_total",
				Help:      "Total number of metadata frames read from the pipe",
			},
			[]string{"network", "mode"},
		),
		BytesRead: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_read_total",
				Help:      "Total number of frame payload bytes read from the pipe",
			},
			[]string{"network", "mode"},
		),
		LedgersIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledgers_ingested_total",
				Help:      "Total number of ledgers successfully decoded and delivered",
			},
			[]string{"network", "mode"},
		),
		LastLedgerSeq: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_ledger_sequence",
				Help:      "Sequence of the last ledger delivered",
			},
			[]string{"network", "mode"},
		),
		DecodeErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Total number of frames that failed XDR decoding",
			},
			[]string{"network", "mode"},
		),
		TruncatedFrames: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "truncated_frames_total",
				Help:      "Total number of frames cut short by pipe EOF",
			},
			[]string{"network", "mode"},
		),
		PipeErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipe_errors_total",
				Help:      "Total number of I/O errors on the metadata pipe",
			},
			[]string{"network", "mode"},
		),
		NodeLaunches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_launches_total",
				Help:      "Total number of node child processes spawned",
			},
			[]string{"network", "mode"},
		),
		NodeFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_failures_total",
				Help:      "Total number of node child processes that exited nonzero",
			},
			[]string{"network", "mode"},
		),
		FrameReadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_read_duration_seconds",
				Help:      "Time spent reading and decoding a single frame",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
			},
			[]string{"network", "mode"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// Labels is a convenience type for metric labels.
type Labels struct {
	Network string
	Mode    string
}

// IncFramesRead increments the frames read counter.
func (m *Metrics) IncFramesRead(l Labels) {
	if m == nil {
		return
	}
	m.FramesRead.WithLabelValues(l.Network, l.Mode).Inc()
}

// AddBytesRead adds to the payload bytes counter.
func (m *Metrics) AddBytesRead(l Labels, n float64) {
	if m == nil {
		return
	}
	m.BytesRead.WithLabelValues(l.Network, l.Mode).Add(n)
}

// IncLedgersIngested increments the ledgers ingested counter.
func (m *Metrics) IncLedgersIngested(l Labels) {
	if m == nil {
		return
	}
	m.LedgersIngested.WithLabelValues(l.Network, l.Mode).Inc()
}

// SetLastLedgerSeq sets the last delivered ledger sequence.
func (m *Metrics) SetLastLedgerSeq(l Labels, seq float64) {
	if m == nil {
		return
	}
	m.LastLedgerSeq.WithLabelValues(l.Network, l.Mode).Set(seq)
}

// IncDecodeErrors increments the decode errors counter.
func (m *Metrics) IncDecodeErrors(l Labels) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(l.Network, l.Mode).Inc()
}

// IncTruncatedFrames increments the truncated frames counter.
func (m *Metrics) IncTruncatedFrames(l Labels) {
	if m == nil {
		return
	}
	m.TruncatedFrames.WithLabelValues(l.Network, l.Mode).Inc()
}

// IncPipeErrors increments the pipe I/O errors counter.
func (m *Metrics) IncPipeErrors(l Labels) {
	if m == nil {
		return
	}
	m.PipeErrors.WithLabelValues(l.Network, l.Mode).Inc()
}

// IncNodeLaunches increments the node launches counter.
func (m *Metrics) IncNodeLaunches(l Labels) {
	if m == nil {
		return
	}
	m.NodeLaunches.WithLabelValues(l.Network, l.Mode).Inc()
}

// IncNodeFailures increments the node failures counter.
func (m *Metrics) IncNodeFailures(l Labels) {
	if m == nil {
		return
	}
	m.NodeFailures.WithLabelValues(l.Network, l.Mode).Inc()
}

// ObserveFrameReadDuration records the time taken to read one frame.
func (m *Metrics) ObserveFrameReadDuration(l Labels, seconds float64) {
	if m == nil {
		return
	}
	m.FrameReadDuration.WithLabelValues(l.Network, l.Mode).Observe(seconds)
}
