package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Итоговое состояние обработки ленты
	FeedsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefeeds_feeds_processed_total",
			Help: "Total number of feeds processed by final state",
		},
		[]string{"state"},
	)

	FeedFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placefeeds_feed_fetch_duration_seconds",
			Help:    "Feed fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// kind: new, updated, unchanged, failed
	ItemsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefeeds_items_synced_total",
			Help: "Total number of feed items classified by the diff engine",
		},
		[]string{"kind"},
	)

	// result: found, none, error
	ImagesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefeeds_images_extracted_total",
			Help: "Total number of item pages scanned for Open Graph images",
		},
		[]string{"result"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefeeds_notifications_published_total",
			Help: "Total number of item update notifications published",
		},
		[]string{"status"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "placefeeds_last_run_timestamp_seconds",
			Help: "Unix time of the last finished update run",
		},
	)
)
