package repository

import (
	"time"

	"habitflow/pkg/metrics"
)

// observe records the statement latency; use with defer.
func observe(operation, table string, start time.Time) {
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))
}
