// Package metrics holds the prometheus collectors of the pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "ship2profile"

var (
	// StageDuration tracks the wall time of each pipeline stage
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
	}, []string{"product", "stage", "result"})

	// DatasetRows is the row count of the last persisted dataset
	DatasetRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dataset_rows",
		Help:      "Rows of the last persisted dataset",
	}, []string{"product", "dataset"})

	// TenureConflicts counts abrnr with more than one kunden_seit
	TenureConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tenure_conflicts_total",
		Help:      "Billing agreements with several customer-since dates",
	}, []string{"product"})

	// EmptyResults counts warehouse queries that returned no rows
	EmptyResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "empty_query_results_total",
		Help:      "Warehouse queries without rows",
	}, []string{"dataset"})

	// WarehouseQueryDuration tracks warehouse round trips
	WarehouseQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "warehouse_query_duration_seconds",
		Help:      "Warehouse query duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	})

	// PublishFailures counts analytic store writes that were swallowed
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_failures_total",
		Help:      "Failed analytic store publications",
	}, []string{"target"})

	// LastSuccess is the unix time of the last successful run
	LastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run",
	}, []string{"product"})
)

// ObserveStage records one stage duration
func ObserveStage(product, stage string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StageDuration.WithLabelValues(product, stage, result).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Push sends the default registry to a pushgateway. Batch runs end before a scrape.
// product is the instance grouping key, "product" is already a metric label.
func Push(url, job, product string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Grouping("instance", product).
		Gatherer(prometheus.DefaultGatherer).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
