// Package metrics exposes Prometheus collectors for the snapshot service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	snapshotPagesTotal      *prometheus.CounterVec
	snapshotCaptureSeconds  *prometheus.HistogramVec
	snapshotJobsTotal       *prometheus.CounterVec
	snapshotActiveWorkers   prometheus.Gauge
	sitemapProbesTotal      *prometheus.CounterVec
	sitemapResolutionsTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		snapshotPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_pages_total",
				Help: "Total number of page captures, labeled by origin and outcome.",
			},
			[]string{"origin", "outcome"},
		)

		snapshotCaptureSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snapshot_capture_duration_seconds",
				Help:    "Histogram of per-URL capture latency, labeled by origin.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"origin"},
		)

		snapshotJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_jobs_total",
				Help: "Total number of jobs processed, labeled by terminal status.",
			},
			[]string{"status"},
		)

		snapshotActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapshot_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		sitemapProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemap_probes_total",
				Help: "Total sitemap candidates probed, labeled by source and result.",
			},
			[]string{"source", "result"},
		)

		sitemapResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemap_resolutions_total",
				Help: "Total sitemap resolutions, labeled by root type.",
			},
			[]string{"root_type"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCapture records one per-URL capture attempt.
func ObserveCapture(origin string, outcome string, duration time.Duration) {
	if snapshotPagesTotal == nil {
		return
	}
	snapshotPagesTotal.WithLabelValues(origin, outcome).Inc()
	snapshotCaptureSeconds.WithLabelValues(origin).Observe(duration.Seconds())
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	if snapshotJobsTotal == nil {
		return
	}
	snapshotJobsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if snapshotActiveWorkers == nil {
		return
	}
	snapshotActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if snapshotActiveWorkers == nil {
		return
	}
	snapshotActiveWorkers.Dec()
}

// ObserveSitemapProbe records one candidate classification.
func ObserveSitemapProbe(source string, isSitemap bool) {
	if sitemapProbesTotal == nil {
		return
	}
	result := "miss"
	if isSitemap {
		result = "sitemap"
	}
	sitemapProbesTotal.WithLabelValues(source, result).Inc()
}

// ObserveSitemapResolution records the terminal root type of one resolution.
func ObserveSitemapResolution(rootType string) {
	if sitemapResolutionsTotal == nil {
		return
	}
	sitemapResolutionsTotal.WithLabelValues(rootType).Inc()
}
