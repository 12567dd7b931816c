// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clima"

var (
	ReadingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_ingested_total",
		Help:      "Readings durably appended, by ingestion source.",
	}, []string{"source"})

	IngestRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_rejected_total",
		Help:      "Ingestion attempts that did not result in a stored reading.",
	}, []string{"source", "reason"})

	StoreAppendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_append_duration_seconds",
		Help:      "Time spent appending one reading, including fsync.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	StoreScannedRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_scanned_rows",
		Help:      "Rows returned by the most recent full scan.",
	})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_errors_total",
		Help:      "Data file operations that failed, by operation.",
	}, []string{"op"})
)
