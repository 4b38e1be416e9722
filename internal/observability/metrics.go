// Package observability exposes Prometheus metrics for the gym store.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	collectionWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "collection",
		Name:      "writes_total",
		Help:      "Number of collection writes, labeled by collection key and operation.",
	}, []string{"collection", "op"})

	decodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "collection",
		Name:      "decode_failures_total",
		Help:      "Number of stored values that could not be decoded and were read as empty.",
	}, []string{"key"})

	lastWriteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymstore",
		Subsystem: "collection",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent collection write.",
	})

	migratedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "migration",
		Name:      "records_migrated_total",
		Help:      "Number of legacy records moved into a family collection.",
	}, []string{"family"})

	separationViolations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymstore",
		Subsystem: "audit",
		Name:      "separation_violations",
		Help:      "Contaminating records found by the most recent separation check.",
	})

	recordsMoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "audit",
		Name:      "records_moved_total",
		Help:      "Number of records moved into their correct family collection.",
	})

	transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "transfer",
		Name:      "operations_total",
		Help:      "Import and export operations, labeled by direction and result.",
	}, []string{"direction", "result"})
)

func init() {
	prometheus.MustRegister(
		collectionWrites,
		decodeFailures,
		lastWriteGauge,
		migratedRecords,
		separationViolations,
		recordsMoved,
		transfers,
	)
}

// RecordWrite counts a persisted collection write.
func RecordWrite(collection, op string, ts time.Time) {
	collectionWrites.WithLabelValues(collection, op).Inc()
	if !ts.IsZero() {
		lastWriteGauge.Set(float64(ts.Unix()))
	}
}

// RecordDecodeFailure counts a corrupt stored value.
func RecordDecodeFailure(key string) {
	decodeFailures.WithLabelValues(key).Inc()
}

// RecordMigrated counts migrated records of a family.
func RecordMigrated(family string, n int) {
	if n <= 0 {
		return
	}
	migratedRecords.WithLabelValues(family).Add(float64(n))
}

// RecordSeparation publishes the contamination count of the last check.
func RecordSeparation(violations int) {
	separationViolations.Set(float64(violations))
}

// RecordMoved counts repaired records.
func RecordMoved(n int) {
	if n <= 0 {
		return
	}
	recordsMoved.Add(float64(n))
}

// RecordTransfer counts an import or export outcome.
func RecordTransfer(direction string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	transfers.WithLabelValues(direction, result).Inc()
}
