// Package metrics counts what the rendering pipeline does, on a private
// Prometheus registry so several pipelines (or tests) never collide.
package metrics

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	DetectionsSeen     prometheus.Counter
	DetectionsAccepted prometheus.Counter
	DetectionsRejected prometheus.Counter
	MaskPixels         prometheus.Counter
	InstanceErrors     *prometheus.CounterVec
	ArtifactsWritten   prometheus.Counter
	ArtifactFailures   prometheus.Counter
	RunDuration        prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		DetectionsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask_overlay_detections_seen_total",
			Help: "Detections handed to the pipeline",
		}),
		DetectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask_overlay_detections_accepted_total",
			Help: "Detections above the confidence threshold",
		}),
		DetectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask_overlay_detections_rejected_total",
			Help: "Detections at or below the confidence threshold",
		}),
		MaskPixels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask_overlay_blended_pixels_total",
			Help: "Canvas pixels blended with the overlay color",
		}),
		InstanceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mask_overlay_instance_errors_total",
			Help: "Per-instance problems by kind",
		}, []string{"kind"}),
		ArtifactsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask_overlay_artifacts_written_total",
			Help: "Crops and composites written",
		}),
		ArtifactFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mask_overlay_artifact_failures_total",
			Help: "Crops and composites that could not be written",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mask_overlay_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.DetectionsSeen,
		m.DetectionsAccepted,
		m.DetectionsRejected,
		m.MaskPixels,
		m.InstanceErrors,
		m.ArtifactsWritten,
		m.ArtifactFailures,
		m.RunDuration,
	)
	return m
}

// Registry returns the underlying registry, e.g. for promhttp.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every metric in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "encode metrics")
		}
	}
	return nil
}

// WriteFile dumps the metrics to path, node-exporter textfile style.
func (m *Metrics) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write metrics")
	}
	return nil
}
