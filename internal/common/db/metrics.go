package db

import "github.com/contactdesk/backend/internal/observability/metrics"

func observeQueryDuration(operation, table string, seconds float64) {
	metrics.DBQueryDurationSeconds.WithLabelValues(operation, table).Observe(seconds)
}
