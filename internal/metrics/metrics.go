package metrics

import (
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ioprimer"

var (
	// Registry is a dedicated Prometheus registry for all ioprimer metrics.
	Registry = prometheus.NewRegistry()

	// WriteDuration measures whole-file writes by call shape.
	WriteDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_ms",
			Help:      "Duration of whole-file writes in milliseconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"shape"}, // write_all | write
	)

	// WriteTotal counts writes by shape and outcome.
	WriteTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_total",
			Help:      "Total number of whole-file writes",
		},
		[]string{"shape", "outcome"}, // outcome: success | failure
	)

	// WrittenBytesTotal accumulates payload bytes that reached disk.
	WrittenBytesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Payload bytes written by successful whole-file writes",
		},
		[]string{"shape"},
	)

	// PartialFilesRemoved counts files removed after a failed write.
	PartialFilesRemoved = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_files_removed_total",
			Help:      "Files removed after a write failed part way",
		},
	)

	// AbortTotal counts fail-fast aborts by reason.
	AbortTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abort_total",
			Help:      "Fail-fast process aborts",
		},
		[]string{"reason"}, // precondition | io
	)

	// BuildInfo exposes static information about the binary.
	BuildInfo = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Static information about the running binary",
		},
		[]string{"os", "arch", "version"},
	)
)

func init() {
	Registry.MustRegister(prometheus.NewGoCollector())
}

// SetBuildInfo publishes a single info metric for the binary.
func SetBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	BuildInfo.WithLabelValues(runtime.GOOS, runtime.GOARCH, version).Set(1)
}

// ObserveWrite records timing, outcome and byte counters for one write.
func ObserveWrite(start time.Time, shape string, size int, err error) {
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	WriteDuration.WithLabelValues(shape).Observe(elapsed)

	if err != nil {
		WriteTotal.WithLabelValues(shape, "failure").Inc()
		return
	}
	WriteTotal.WithLabelValues(shape, "success").Inc()
	if size > 0 {
		WrittenBytesTotal.WithLabelValues(shape).Add(float64(size))
	}
}

// ObservePartialRemoved increments the partial file removal counter.
func ObservePartialRemoved() {
	PartialFilesRemoved.Inc()
}

// ObserveAbort increments the abort counter for reason.
func ObserveAbort(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	AbortTotal.WithLabelValues(reason).Inc()
}

// WriteTextfile dumps the registry in the Prometheus text format, for
// collection by a node_exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}
