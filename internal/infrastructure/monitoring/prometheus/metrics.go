package prometheus

import (
	"time"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Lock outcomes reported by RepositoryMetrics.
const (
	LockAcquired  = "acquired"
	LockContended = "contended"
	LockFailed    = "failed"
)

var (
	// QueryDurationBuckets spans sub-millisecond index hits to slow list scans.
	QueryDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	// RowBuckets covers page sizes up to the default maximum.
	RowBuckets = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// RepositoryMetrics records syntax repository activity. It satisfies the
// repository Observer interface.
type RepositoryMetrics struct {
	QueryDuration    HistogramVec
	QueryRows        HistogramVec
	QueryErrors      CounterVec
	LockAcquisitions CounterVec
	LockWait         HistogramVec
}

// NewRepositoryMetrics registers the repository metrics on collector.
func NewRepositoryMetrics(collector MetricsCollector) *RepositoryMetrics {
	return &RepositoryMetrics{
		QueryDuration: collector.RegisterHistogram("query_duration_seconds",
			"Duration of repository operations in seconds.",
			QueryDurationBuckets, "entity_type", "operation"),
		QueryRows: collector.RegisterHistogram("query_rows",
			"Number of rows returned by repository operations.",
			RowBuckets, "entity_type", "operation"),
		QueryErrors: collector.RegisterCounter("query_errors_total",
			"Repository operations that returned an error, by error code.",
			"entity_type", "operation", "code"),
		LockAcquisitions: collector.RegisterCounter("lock_acquisitions_total",
			"Attempts to lock a root for update, by outcome.",
			"entity_type", "result"),
		LockWait: collector.RegisterHistogram("lock_wait_seconds",
			"Time spent acquiring the lock on a root.",
			QueryDurationBuckets, "entity_type"),
	}
}

// ObserveQuery records one repository operation.
func (m *RepositoryMetrics) ObserveQuery(entityType, operation string, elapsed time.Duration, rows int, err error) {
	m.QueryDuration.WithLabelValues(entityType, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(entityType, operation, errors.GetCode(err).String()).Inc()
		return
	}
	m.QueryRows.WithLabelValues(entityType, operation).Observe(float64(rows))
}

// ObserveLock records one lock attempt.
func (m *RepositoryMetrics) ObserveLock(entityType string, elapsed time.Duration, err error) {
	m.LockWait.WithLabelValues(entityType).Observe(elapsed.Seconds())
	result := LockAcquired
	switch {
	case errors.IsCode(err, errors.ErrCodeConflict), errors.IsCode(err, errors.ErrCodeLockUnavailable):
		result = LockContended
	case err != nil:
		result = LockFailed
	}
	m.LockAcquisitions.WithLabelValues(entityType, result).Inc()
}
