package scenario

import (
	"fmt"
	"time"
)

// FaultKind identifies one of the supported fault types. The set is closed:
// adding a kind requires registering a matching injector.
type FaultKind string

const (
	NetworkDelay       FaultKind = "network-delay"
	NetworkFailure     FaultKind = "network-failure"
	DiskExhaustion     FaultKind = "disk-exhaustion"
	MemoryPressure     FaultKind = "memory-pressure"
	CPUSpike           FaultKind = "cpu-spike"
	ProcessTermination FaultKind = "process-termination"
	RandomFault        FaultKind = "random-fault"
	RateLimit          FaultKind = "rate-limit"
	DependencyFailure  FaultKind = "dependency-failure"
	DataCorruption     FaultKind = "data-corruption"
	PermissionDenial   FaultKind = "permission-denial"
	TimeoutInflation   FaultKind = "timeout-inflation"
)

// Kinds lists every supported fault kind.
func Kinds() []FaultKind {
	return []FaultKind{
		NetworkDelay,
		NetworkFailure,
		DiskExhaustion,
		MemoryPressure,
		CPUSpike,
		ProcessTermination,
		RandomFault,
		RateLimit,
		DependencyFailure,
		DataCorruption,
		PermissionDenial,
		TimeoutInflation,
	}
}

// Known reports whether k is one of the supported fault kinds.
func Known(k FaultKind) bool {
	for _, kind := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// ImpactLevel classifies how disruptive a scenario is expected to be.
// It is assigned by the scenario author and drives the pass/fail policy.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// knownImpacts maps impact levels to their severity order.
var knownImpacts = map[ImpactLevel]int{
	ImpactLow:      0,
	ImpactMedium:   1,
	ImpactHigh:     2,
	ImpactCritical: 3,
}

// Severity returns the ordering rank of the impact level (low < medium <
// high < critical). Unknown levels rank below low.
func (l ImpactLevel) Severity() int {
	rank, ok := knownImpacts[l]
	if !ok {
		return -1
	}
	return rank
}

// Defaults applied by Normalize.
const (
	DefaultProbability       = 1.0
	DefaultRecoveryTimeLimit = 60 * time.Second
)

// Scenario is an immutable description of one fault to inject. A scenario
// is created once per test definition and may be reused across runs.
type Scenario struct {
	// Name identifies the scenario in reports and logs.
	Name string `yaml:"name"`

	// Kind selects which injector applies the fault.
	Kind FaultKind `yaml:"kind"`

	// Impact is the author-assigned severity classification.
	Impact ImpactLevel `yaml:"impact"`

	// Duration is how long the fault window stays open.
	Duration time.Duration `yaml:"duration"`

	// Probability gates whether the scenario fires at all (0.0-1.0).
	Probability float64 `yaml:"probability"`

	// Parameters are kind-specific settings, e.g. delay_ms, size_mb.
	Parameters Params `yaml:"parameters,omitempty"`

	// Description of what this scenario exercises.
	Description string `yaml:"description,omitempty"`

	// ExpectedBehavior documents what the system under test should do.
	// Informational only; it does not affect the verdict.
	ExpectedBehavior string `yaml:"expected_behavior,omitempty"`

	// RecoveryTimeLimit bounds how long recovery may take before the
	// scenario fails.
	RecoveryTimeLimit time.Duration `yaml:"recovery_time_limit"`
}

// Normalize returns a copy of the scenario with defaults applied: a 60s
// recovery time limit and low impact when unset. Probability is never
// rewritten here: 0.0 is a legal value meaning the scenario never fires,
// so the 1.0 default is applied only where absence is detectable, in the
// catalog loader.
func (s Scenario) Normalize() Scenario {
	if s.RecoveryTimeLimit == 0 {
		s.RecoveryTimeLimit = DefaultRecoveryTimeLimit
	}
	if s.Impact == "" {
		s.Impact = ImpactLow
	}
	return s
}

// Validate checks the scenario against the structural rules. It does not
// check kind-specific parameters; injectors validate those at apply time.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name must not be empty")
	}
	if !Known(s.Kind) {
		return fmt.Errorf("scenario %q: unknown fault kind %q", s.Name, s.Kind)
	}
	if _, ok := knownImpacts[s.Impact]; !ok {
		return fmt.Errorf("scenario %q: unknown impact level %q", s.Name, s.Impact)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("scenario %q: duration must be positive, got %s", s.Name, s.Duration)
	}
	if s.Probability < 0 || s.Probability > 1 {
		return fmt.Errorf("scenario %q: probability must be in [0.0, 1.0], got %g", s.Name, s.Probability)
	}
	return nil
}
