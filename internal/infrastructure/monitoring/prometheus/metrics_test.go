package prometheus

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

func newTestRepositoryMetrics(t *testing.T) (*RepositoryMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewRepositoryMetrics(c)
	require.NotNil(t, m)
	return m, c
}

func TestObserveQuery_Success(t *testing.T) {
	m, c := newTestRepositoryMetrics(t)

	m.ObserveQuery("objective_template", "list", 20*time.Millisecond, 7, nil)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_query_duration_seconds_count{entity_type="objective_template",operation="list"} 1`)
	assert.Contains(t, output, `test_unit_query_rows_sum{entity_type="objective_template",operation="list"} 7`)
	assert.NotContains(t, output, "test_unit_query_errors_total{")
}

func TestObserveQuery_ErrorCountedByCode(t *testing.T) {
	m, c := newTestRepositoryMetrics(t)

	m.ObserveQuery("criteria_instance", "fetch", time.Millisecond, 0, errors.NotFound("gone"))
	m.ObserveQuery("criteria_instance", "fetch", time.Millisecond, 0, errors.NotFound("gone"))
	m.ObserveQuery("criteria_instance", "fetch", time.Millisecond, 0, stderrors.New("boom"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_query_errors_total{code="COMMON_005",entity_type="criteria_instance",operation="fetch"} 2`)
	assert.Contains(t, output, `test_unit_query_errors_total{code="COMMON_000",entity_type="criteria_instance",operation="fetch"} 1`)
	assert.Contains(t, output, `test_unit_query_duration_seconds_count{entity_type="criteria_instance",operation="fetch"} 3`)
	assert.NotContains(t, output, "test_unit_query_rows_count{")
}

func TestObserveLock_Outcomes(t *testing.T) {
	m, c := newTestRepositoryMetrics(t)

	m.ObserveLock("footnote_template", time.Millisecond, nil)
	m.ObserveLock("footnote_template", time.Second, errors.Conflict("locked"))
	m.ObserveLock("footnote_template", time.Millisecond, stderrors.New("redis down"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_lock_acquisitions_total{entity_type="footnote_template",result="acquired"} 1`)
	assert.Contains(t, output, `test_unit_lock_acquisitions_total{entity_type="footnote_template",result="contended"} 1`)
	assert.Contains(t, output, `test_unit_lock_acquisitions_total{entity_type="footnote_template",result="failed"} 1`)
	assert.Contains(t, output, `test_unit_lock_wait_seconds_count{entity_type="footnote_template"} 3`)
}

func TestNewRepositoryMetrics_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	first := NewRepositoryMetrics(c)
	second := NewRepositoryMetrics(c)

	first.ObserveQuery("endpoint_template", "headers", time.Millisecond, 2, nil)
	second.ObserveQuery("endpoint_template", "headers", time.Millisecond, 3, nil)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_query_rows_sum{entity_type="endpoint_template",operation="headers"} 5`)
}
