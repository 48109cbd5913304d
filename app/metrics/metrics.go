// Package metrics provides Prometheus metrics for rss-reader.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rss_reader"

var (
	// ExtractionsTotal counts extraction attempts by the strategy that produced content.
	// Failed attempts are recorded with strategy "none".
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of article content extractions by strategy",
		},
		[]string{"strategy"},
	)

	// SyncsTotal counts feed syncs by outcome.
	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_syncs_total",
			Help:      "Total number of feed syncs",
		},
		[]string{"status"},
	)

	// SyncDuration measures how long a feed sync takes.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_sync_duration_seconds",
			Help:      "Duration of feed syncs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// ArticlesIngested counts newly persisted articles.
	ArticlesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_ingested_total",
			Help:      "Total number of new articles persisted",
		},
	)

	// TasksTotal counts background tasks by type and outcome.
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of background tasks executed",
		},
		[]string{"type", "status"},
	)

	// QueueDepth tracks the number of queued background tasks.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_depth",
			Help:      "Number of background tasks waiting in the queue",
		},
	)
)

// RecordExtraction records which strategy produced content.
func RecordExtraction(strategy string) {
	ExtractionsTotal.WithLabelValues(strategy).Inc()
}

// RecordSync records a finished feed sync.
func RecordSync(status string, newArticles int, duration float64) {
	SyncsTotal.WithLabelValues(status).Inc()
	SyncDuration.Observe(duration)
	ArticlesIngested.Add(float64(newArticles))
}

// RecordTask records a finished background task.
func RecordTask(taskType, status string) {
	TasksTotal.WithLabelValues(taskType, status).Inc()
}
