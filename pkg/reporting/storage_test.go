package reporting_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/reporting"
	"github.com/hkwon/chaos-verify/pkg/runner"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

func quietLogger() *reporting.Logger {
	return reporting.NewLogger(reporting.LoggerConfig{
		Level:  reporting.LogLevelError,
		Format: reporting.LogFormatJSON,
		Output: io.Discard,
	})
}

func sampleRun(startedAt time.Time) *runner.Run {
	rt := 2 * time.Second
	return &runner.Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(time.Minute),
		Results: []*engine.Result{
			{
				Scenario: scenario.Scenario{
					Name:              "slow-network",
					Kind:              scenario.NetworkDelay,
					Impact:            scenario.ImpactLow,
					Duration:          time.Second,
					RecoveryTimeLimit: 60 * time.Second,
				},
				StartedAt:       startedAt,
				EndedAt:         startedAt.Add(time.Second),
				SystemRecovered: true,
				RecoveryTime:    &rt,
				ErrorsCaught:    []error{assert.AnError},
				MetricsBefore:   &metrics.Snapshot{CPUPercent: 10},
				MetricsAfter:    &metrics.Snapshot{CPUPercent: 12},
			},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	dir := t.TempDir()
	storage, err := reporting.NewStorage(dir, 10, quietLogger())
	require.NoError(t, err)

	run := sampleRun(time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC))
	path, err := storage.SaveRun(run, engine.Policy{})
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))

	// The rendered text report is written next to the JSON record.
	textPath := path[:len(path)-len(".json")] + ".txt"
	text, err := os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "RESILIENCE VERIFICATION REPORT")

	rec, err := storage.LoadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, run.ID, rec.ID)
	assert.Equal(t, 1, rec.Passed)
	assert.Equal(t, 0, rec.Failed)
	require.Len(t, rec.Scenarios, 1)
	assert.Equal(t, "slow-network", rec.Scenarios[0].Name)
	assert.Equal(t, []string{assert.AnError.Error()}, rec.Scenarios[0].Errors)
	require.NotNil(t, rec.Scenarios[0].RecoveryTimeSeconds)
	assert.Equal(t, 2.0, *rec.Scenarios[0].RecoveryTimeSeconds)
}

func TestListRunsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	storage, err := reporting.NewStorage(dir, 10, quietLogger())
	require.NoError(t, err)

	base := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := storage.SaveRun(sampleRun(base.Add(time.Duration(i)*time.Hour)), engine.Policy{})
		require.NoError(t, err)
	}

	runs, err := storage.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[1].StartedAt.After(runs[2].StartedAt))
}

func TestPruneKeepsLastN(t *testing.T) {
	dir := t.TempDir()
	storage, err := reporting.NewStorage(dir, 2, quietLogger())
	require.NoError(t, err)

	base := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := storage.SaveRun(sampleRun(base.Add(time.Duration(i)*time.Hour)), engine.Policy{})
		require.NoError(t, err)
	}

	runs, err := storage.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// The newest two survive.
	assert.Equal(t, base.Add(4*time.Hour), runs[0].StartedAt.UTC())
	assert.Equal(t, base.Add(3*time.Hour), runs[1].StartedAt.UTC())

	// Pruning removes the text reports along with the JSON records.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
