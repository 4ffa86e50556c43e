package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters of a single run. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	filesScanned    *prometheus.CounterVec
	geometryFailed  *prometheus.CounterVec
	imagesMatched   *prometheus.CounterVec
	filesCopied     *prometheus.CounterVec
	filesSkipped    *prometheus.CounterVec
	copyFailures    *prometheus.CounterVec
	checksumRetries prometheus.Counter
}

// New creates a recorder with its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "files_scanned_total",
			Help:      "Files written to the catalog by class.",
		}, []string{"class"}),
		geometryFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "geometry_failures_total",
			Help:      "Files whose footprint could not be computed.",
		}, []string{"class"}),
		imagesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "images_matched_total",
			Help:      "Match outcomes by method.",
		}, []string{"method"}),
		filesCopied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "files_copied_total",
			Help:      "Files written to the output tree.",
		}, []string{"kind"}),
		filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "files_skipped_total",
			Help:      "Files skipped because the destination already existed.",
		}, []string{"kind"}),
		copyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "copy_failures_total",
			Help:      "Per-file copy failures by reason.",
		}, []string{"reason"}),
		checksumRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shaperenamer",
			Name:      "checksum_retries_total",
			Help:      "Copies repeated after a checksum mismatch.",
		}),
	}

	r.registry.MustRegister(
		r.filesScanned,
		r.geometryFailed,
		r.imagesMatched,
		r.filesCopied,
		r.filesSkipped,
		r.copyFailures,
		r.checksumRetries,
	)
	return r
}

func (r *Recorder) Scanned(class string) {
	if r != nil {
		r.filesScanned.WithLabelValues(class).Inc()
	}
}

func (r *Recorder) GeometryFailed(class string) {
	if r != nil {
		r.geometryFailed.WithLabelValues(class).Inc()
	}
}

func (r *Recorder) Matched(method string) {
	if r != nil {
		r.imagesMatched.WithLabelValues(method).Inc()
	}
}

func (r *Recorder) Copied(kind string) {
	if r != nil {
		r.filesCopied.WithLabelValues(kind).Inc()
	}
}

func (r *Recorder) Skipped(kind string) {
	if r != nil {
		r.filesSkipped.WithLabelValues(kind).Inc()
	}
}

func (r *Recorder) CopyFailed(reason string) {
	if r != nil {
		r.copyFailures.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) ChecksumRetry() {
	if r != nil {
		r.checksumRetries.Inc()
	}
}

// WriteTextfile dumps the counters in the node_exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
