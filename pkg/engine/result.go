package engine

import (
	"time"

	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

// MediumTolerance is the hard upper bound on recovery time for
// medium-impact scenarios. A medium scenario that recovers past its own
// limit but under this bound still passes.
const MediumTolerance = 300 * time.Second

// Policy tunes the verdict rules.
type Policy struct {
	// CriticalRequiresRecovery additionally requires critical-impact
	// scenarios to have recovered, on top of having surfaced at least one
	// fault. Off by default: a critical scenario passes when the fault was
	// observed at all.
	CriticalRequiresRecovery bool `yaml:"critical_requires_recovery"`
}

// Result is the immutable record of one scenario execution.
type Result struct {
	Scenario scenario.Scenario `json:"scenario"`

	StartedAt time.Time `json:"started_at"`
	// EndedAt is zero until the run is finalized. A skipped scenario is
	// never finalized, so its duration stays zero.
	EndedAt time.Time `json:"ended_at,omitempty"`

	SystemRecovered bool `json:"system_recovered"`

	// RecoveryTime is the elapsed time from StartedAt until the system
	// passed the recovery check. Nil when recovery was never observed.
	RecoveryTime *time.Duration `json:"recovery_time,omitempty"`

	ErrorsCaught []error `json:"-"`

	MetricsBefore *metrics.Snapshot `json:"metrics_before,omitempty"`
	MetricsAfter  *metrics.Snapshot `json:"metrics_after,omitempty"`

	// Log holds the human-readable event trail for the report.
	Log []string `json:"log,omitempty"`

	// Skipped is set when the probability gate kept the fault from firing.
	Skipped bool `json:"skipped,omitempty"`
}

// Duration is the wall time from start to finalization, zero for a run that
// never ended (skipped scenarios).
func (r *Result) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Passed applies the verdict policy.
//
// A recovery time over the scenario's limit fails the scenario, except for
// medium impact where anything under the 300s tolerance is forgiven. Then
// per impact: low requires recovery; medium requires recovery or a recovery
// time under the tolerance; high and critical require that at least one
// fault was actually surfaced, since an injection nobody noticed proves
// nothing.
func (r *Result) Passed(p Policy) bool {
	if r.Skipped {
		return true
	}

	if r.RecoveryTime != nil && *r.RecoveryTime > r.Scenario.RecoveryTimeLimit {
		forgiven := r.Scenario.Impact == scenario.ImpactMedium && *r.RecoveryTime < MediumTolerance
		if !forgiven {
			return false
		}
	}

	switch r.Scenario.Impact {
	case scenario.ImpactLow:
		return r.SystemRecovered
	case scenario.ImpactMedium:
		if r.SystemRecovered {
			return true
		}
		return r.RecoveryTime != nil && *r.RecoveryTime < MediumTolerance
	case scenario.ImpactHigh:
		return len(r.ErrorsCaught) > 0
	case scenario.ImpactCritical:
		if p.CriticalRequiresRecovery && !r.SystemRecovered {
			return false
		}
		return len(r.ErrorsCaught) > 0
	default:
		return false
	}
}
