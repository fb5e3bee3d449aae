package reporting_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/reporting"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

func sampleResults() []*engine.Result {
	started := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	rt := 1200 * time.Millisecond

	passRes := &engine.Result{
		Scenario: scenario.Scenario{
			Name:              "slow-network",
			Kind:              scenario.NetworkDelay,
			Impact:            scenario.ImpactLow,
			Duration:          time.Second,
			RecoveryTimeLimit: 60 * time.Second,
		},
		StartedAt:       started,
		EndedAt:         started.Add(1050 * time.Millisecond),
		SystemRecovered: true,
		RecoveryTime:    &rt,
		MetricsBefore:   &metrics.Snapshot{CPUPercent: 12.34, MemoryPercent: 40.0, DiskPercent: 55.01},
		MetricsAfter:    &metrics.Snapshot{CPUPercent: 14.06, MemoryPercent: 41.2, DiskPercent: 55.01},
	}
	failRes := &engine.Result{
		Scenario: scenario.Scenario{
			Name:              "dead-dependency",
			Kind:              scenario.DependencyFailure,
			Impact:            scenario.ImpactLow,
			Duration:          2 * time.Second,
			RecoveryTimeLimit: 60 * time.Second,
		},
		StartedAt:       started.Add(time.Minute),
		EndedAt:         started.Add(time.Minute + 2*time.Second),
		SystemRecovered: false,
		ErrorsCaught:    []error{assert.AnError, assert.AnError},
		MetricsBefore:   &metrics.Snapshot{CPUPercent: 10, MemoryPercent: 40, DiskPercent: 55},
		MetricsAfter:    &metrics.Snapshot{CPUPercent: 11, MemoryPercent: 40, DiskPercent: 55},
	}
	return []*engine.Result{passRes, failRes}
}

func TestRenderStructure(t *testing.T) {
	generated := time.Date(2026, 8, 27, 12, 30, 45, 0, time.UTC)
	out := reporting.RenderAt(sampleResults(), engine.Policy{}, generated)

	assert.Contains(t, out, "RESILIENCE VERIFICATION REPORT")
	assert.Contains(t, out, "Generated:    2026-08-27 12:30:45")
	assert.Contains(t, out, "Scenarios:    2")

	assert.Contains(t, out, "Passed:       1")
	assert.Contains(t, out, "Failed:       1")
	assert.Contains(t, out, "Pass Rate:    50.0%")

	assert.Contains(t, out, "SCENARIO: slow-network")
	assert.Contains(t, out, "Kind:             network-delay")
	assert.Contains(t, out, "Impact:           low")
	assert.Contains(t, out, "Verdict:          PASS")
	assert.Contains(t, out, "Duration:         1.1s")
	assert.Contains(t, out, "Recovered:        true")
	assert.Contains(t, out, "Recovery Time:    1.2s")
	assert.Contains(t, out, "Errors Caught:    0")
	assert.Contains(t, out, "CPU:      12.3% -> 14.1%")
	assert.Contains(t, out, "Memory:   40.0% -> 41.2%")
	assert.Contains(t, out, "Disk:     55.0% -> 55.0%")

	assert.Contains(t, out, "SCENARIO: dead-dependency")
	assert.Contains(t, out, "Verdict:          FAIL")
	assert.Contains(t, out, "Errors Caught:    2")

	// Subsections appear in run order.
	assert.Less(t,
		strings.Index(out, "SCENARIO: slow-network"),
		strings.Index(out, "SCENARIO: dead-dependency"),
	)
}

func TestRenderOmitsRecoveryTimeWhenAbsent(t *testing.T) {
	results := sampleResults()[1:]
	out := reporting.RenderAt(results, engine.Policy{}, time.Now())
	assert.NotContains(t, out, "Recovery Time:")
}

func TestRenderEmptyResults(t *testing.T) {
	out := reporting.RenderAt(nil, engine.Policy{}, time.Now())
	assert.Contains(t, out, "Scenarios:    0")
	assert.Contains(t, out, "Pass Rate:    0.0%")
}

func TestRenderIsPure(t *testing.T) {
	results := sampleResults()
	generated := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	first := reporting.RenderAt(results, engine.Policy{}, generated)
	second := reporting.RenderAt(results, engine.Policy{}, generated)
	require.Equal(t, first, second)
}
