package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hkwon/chaos-verify/pkg/scenario"
)

func dur(d time.Duration) *time.Duration { return &d }

func TestPassedPolicyTable(t *testing.T) {
	cases := []struct {
		name         string
		impact       scenario.ImpactLevel
		recovered    bool
		recoveryTime *time.Duration
		errorsCaught int
		want         bool
	}{
		{"low recovered", scenario.ImpactLow, true, dur(5 * time.Second), 0, true},
		{"low not recovered", scenario.ImpactLow, false, nil, 0, false},
		{"medium not recovered but under tolerance", scenario.ImpactMedium, false, dur(250 * time.Second), 0, true},
		{"medium over tolerance", scenario.ImpactMedium, true, dur(400 * time.Second), 0, false},
		{"medium recovered in time", scenario.ImpactMedium, true, dur(30 * time.Second), 0, true},
		{"high no errors", scenario.ImpactHigh, true, dur(5 * time.Second), 0, false},
		{"high with error", scenario.ImpactHigh, false, nil, 1, true},
		{"critical with error", scenario.ImpactCritical, false, nil, 2, true},
		{"critical no errors", scenario.ImpactCritical, true, dur(5 * time.Second), 0, false},
		{"low over limit", scenario.ImpactLow, true, dur(90 * time.Second), 0, false},
		{"high over limit", scenario.ImpactHigh, false, dur(90 * time.Second), 1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Result{
				Scenario: scenario.Scenario{
					Name:              "policy",
					Kind:              scenario.NetworkDelay,
					Impact:            tc.impact,
					Duration:          time.Second,
					RecoveryTimeLimit: 60 * time.Second,
				},
				SystemRecovered: tc.recovered,
				RecoveryTime:    tc.recoveryTime,
			}
			for i := 0; i < tc.errorsCaught; i++ {
				res.ErrorsCaught = append(res.ErrorsCaught, assert.AnError)
			}
			assert.Equal(t, tc.want, res.Passed(Policy{}))
		})
	}
}

func TestPassedCriticalRequiresRecoveryToggle(t *testing.T) {
	res := Result{
		Scenario: scenario.Scenario{
			Name:              "critical",
			Kind:              scenario.ProcessTermination,
			Impact:            scenario.ImpactCritical,
			Duration:          time.Second,
			RecoveryTimeLimit: 60 * time.Second,
		},
		SystemRecovered: false,
		ErrorsCaught:    []error{assert.AnError},
	}

	assert.True(t, res.Passed(Policy{}))
	assert.False(t, res.Passed(Policy{CriticalRequiresRecovery: true}))

	res.SystemRecovered = true
	rt := 5 * time.Second
	res.RecoveryTime = &rt
	assert.True(t, res.Passed(Policy{CriticalRequiresRecovery: true}))
}

func TestSkippedResultAlwaysPasses(t *testing.T) {
	res := Result{
		Scenario:        scenario.Scenario{Impact: scenario.ImpactHigh},
		Skipped:         true,
		SystemRecovered: true,
	}
	assert.True(t, res.Passed(Policy{}))
}

func TestDurationZeroUntilEnded(t *testing.T) {
	res := Result{StartedAt: time.Now()}
	assert.Equal(t, time.Duration(0), res.Duration())

	res.EndedAt = res.StartedAt.Add(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, res.Duration())
}
