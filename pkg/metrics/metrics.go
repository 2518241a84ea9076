package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_scores_total",
			Help: "Total number of scored profiles by risk level",
		},
		[]string{"risk"},
	)

	ScoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_score_failures_total",
			Help: "Total number of rejected scoring requests by error code",
		},
		[]string{"error_code"},
	)

	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_score_duration_seconds",
			Help:    "Duration of a single scoring call in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)

	ModelReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_model_reloads_total",
			Help: "Total number of model artifact loads by outcome",
		},
		[]string{"status"},
	)

	LoaderRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_loader_rows_total",
			Help: "Rows read from the customer dataset, kept or dropped",
		},
		[]string{"outcome"},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "churn_dataset_rows",
			Help: "Number of customer records currently served",
		},
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "churn_training_duration_seconds",
			Help: "Duration of pipeline training in seconds",
		},
		[]string{"solver"},
	)
)
