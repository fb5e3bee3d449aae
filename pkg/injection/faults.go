package injection

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/hkwon/chaos-verify/pkg/scenario"
	"github.com/hkwon/chaos-verify/pkg/target"
)

// genericFaults is the fixed set raised by the random-fault injector.
var genericFaults = []error{
	target.ErrTransient,
	target.ErrInvalidArgument,
	target.ErrNotFound,
	target.ErrTimeout,
}

// RandomFaultInjector raises one of a small fixed set of generic faults,
// with a low per-operation probability, on every gateway call made during
// the window.
type RandomFaultInjector struct {
	deps Deps
	roll func() float64
	pick func(n int) int
}

// NewRandomFault creates the random-fault injector.
func NewRandomFault(deps Deps) *RandomFaultInjector {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &RandomFaultInjector{deps: deps, roll: rng.Float64, pick: rng.Intn}
}

// Kind returns scenario.RandomFault.
func (i *RandomFaultInjector) Kind() scenario.FaultKind { return scenario.RandomFault }

// Apply wraps the gateway so each intercepted operation fails with
// fault_rate probability (default 0.05).
func (i *RandomFaultInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	rate := params.Float("fault_rate", 0.05)
	if rate < 0 || rate > 1 {
		return []error{fmt.Errorf("invalid fault_rate %g: must be in [0.0, 1.0]", rate)}
	}

	base := i.deps.Env.Gateway()
	faulty := target.GatewayFunc(func(ctx context.Context, dep string, op func() error) error {
		if i.roll() < rate {
			return fmt.Errorf("call %s: %w", dep, genericFaults[i.pick(len(genericFaults))])
		}
		return base.Call(ctx, dep, op)
	})

	restore := i.deps.Env.SwapGateway(faulty)
	i.deps.Audit.Record("swap_gateway", fmt.Sprintf("random faults at rate %.2f", rate), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_gateway", "original gateway restored", nil)
	}()

	i.deps.Logger.Info().Float64("fault_rate", rate).Dur("window", duration).Msg("random faults active")

	holdWindow(ctx, duration)
	return nil
}

// RateLimitInjector makes a high fraction of calls to one named dependency
// return a rate-limit response.
type RateLimitInjector struct {
	deps Deps
	roll func() float64
}

// NewRateLimit creates the rate-limit injector.
func NewRateLimit(deps Deps) *RateLimitInjector {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &RateLimitInjector{deps: deps, roll: rng.Float64}
}

// Kind returns scenario.RateLimit.
func (i *RateLimitInjector) Kind() scenario.FaultKind { return scenario.RateLimit }

// Apply wraps the gateway so calls to the named dependency fail with
// target.ErrRateLimited at limit_rate (default 0.9).
func (i *RateLimitInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	dep := params.String("dependency", "")
	if dep == "" {
		return []error{fmt.Errorf("dependency parameter is required")}
	}
	rate := params.Float("limit_rate", 0.9)
	if rate < 0 || rate > 1 {
		return []error{fmt.Errorf("invalid limit_rate %g: must be in [0.0, 1.0]", rate)}
	}

	base := i.deps.Env.Gateway()
	limited := target.GatewayFunc(func(ctx context.Context, name string, op func() error) error {
		if name == dep && i.roll() < rate {
			return fmt.Errorf("call %s: %w", name, target.ErrRateLimited)
		}
		return base.Call(ctx, name, op)
	})

	restore := i.deps.Env.SwapGateway(limited)
	i.deps.Audit.Record("swap_gateway", fmt.Sprintf("rate limit %.2f on %s", rate, dep), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_gateway", "original gateway restored", nil)
	}()

	i.deps.Logger.Info().Str("dependency", dep).Float64("limit_rate", rate).Msg("rate limiting active")

	holdWindow(ctx, duration)
	return nil
}

// DependencyFailureInjector makes one named dependency unresolvable for the
// window, then restores resolution exactly as it was.
type DependencyFailureInjector struct {
	deps Deps
}

// NewDependencyFailure creates the dependency-failure injector.
func NewDependencyFailure(deps Deps) *DependencyFailureInjector {
	return &DependencyFailureInjector{deps: deps}
}

// Kind returns scenario.DependencyFailure.
func (i *DependencyFailureInjector) Kind() scenario.FaultKind { return scenario.DependencyFailure }

// Apply shadows the directory so the named dependency resolves to
// target.ErrUnavailable while every other name passes through untouched.
func (i *DependencyFailureInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	dep := params.String("dependency", "")
	if dep == "" {
		return []error{fmt.Errorf("dependency parameter is required")}
	}

	base := i.deps.Env.Directory()
	shadow := target.DirectoryFunc(func(name string) (string, error) {
		if name == dep {
			return "", fmt.Errorf("resolve %s: %w", name, target.ErrUnavailable)
		}
		return base.Resolve(name)
	})

	restore := i.deps.Env.SwapDirectory(shadow)
	i.deps.Audit.Record("swap_directory", fmt.Sprintf("dependency %s unavailable", dep), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_directory", "original directory restored", nil)
	}()

	i.deps.Logger.Info().Str("dependency", dep).Dur("window", duration).Msg("dependency failure active")

	holdWindow(ctx, duration)
	return nil
}

// DataCorruptionInjector fails reads of files matching a glob with a
// corruption error. The real file bytes are never touched.
type DataCorruptionInjector struct {
	deps Deps
}

// NewDataCorruption creates the data-corruption injector.
func NewDataCorruption(deps Deps) *DataCorruptionInjector {
	return &DataCorruptionInjector{deps: deps}
}

// Kind returns scenario.DataCorruption.
func (i *DataCorruptionInjector) Kind() scenario.FaultKind { return scenario.DataCorruption }

// Apply wraps file opens so paths matching path_glob fail with
// target.ErrCorrupted for the window.
func (i *DataCorruptionInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	glob := params.String("path_glob", "")
	if glob == "" {
		return []error{fmt.Errorf("path_glob parameter is required")}
	}
	if _, err := filepath.Match(glob, ""); err != nil {
		return []error{fmt.Errorf("invalid path_glob %q: %w", glob, err)}
	}

	base := i.deps.Env.Files()
	corrupted := target.FilesFunc(func(name string) (io.ReadCloser, error) {
		if ok, _ := filepath.Match(glob, name); ok {
			return nil, fmt.Errorf("open %s: %w", name, target.ErrCorrupted)
		}
		if ok, _ := filepath.Match(glob, filepath.Base(name)); ok {
			return nil, fmt.Errorf("open %s: %w", name, target.ErrCorrupted)
		}
		return base.Open(name)
	})

	restore := i.deps.Env.SwapFiles(corrupted)
	i.deps.Audit.Record("swap_files", fmt.Sprintf("reads matching %s fail", glob), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_files", "original file access restored", nil)
	}()

	i.deps.Logger.Info().Str("path_glob", glob).Dur("window", duration).Msg("data corruption active")

	holdWindow(ctx, duration)
	return nil
}

// PermissionDenialInjector fails a fixed fraction of permission checks.
type PermissionDenialInjector struct {
	deps Deps
	roll func() float64
}

// NewPermissionDenial creates the permission-denial injector.
func NewPermissionDenial(deps Deps) *PermissionDenialInjector {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &PermissionDenialInjector{deps: deps, roll: rng.Float64}
}

// Kind returns scenario.PermissionDenial.
func (i *PermissionDenialInjector) Kind() scenario.FaultKind { return scenario.PermissionDenial }

// Apply wraps the permission gate so deny_rate of checks (default 0.5)
// fail with target.ErrPermissionDenied.
func (i *PermissionDenialInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	rate := params.Float("deny_rate", 0.5)
	if rate < 0 || rate > 1 {
		return []error{fmt.Errorf("invalid deny_rate %g: must be in [0.0, 1.0]", rate)}
	}

	base := i.deps.Env.Gate()
	denying := target.GateFunc(func(action string) error {
		if i.roll() < rate {
			return fmt.Errorf("%s: %w", action, target.ErrPermissionDenied)
		}
		return base.Allow(action)
	})

	restore := i.deps.Env.SwapGate(denying)
	i.deps.Audit.Record("swap_gate", fmt.Sprintf("permission denial rate %.2f", rate), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_gate", "original gate restored", nil)
	}()

	i.deps.Logger.Info().Float64("deny_rate", rate).Dur("window", duration).Msg("permission denial active")

	holdWindow(ctx, duration)
	return nil
}

// TimeoutInflationInjector multiplies sleep durations to simulate stalls.
type TimeoutInflationInjector struct {
	deps Deps
	roll func() float64
}

// NewTimeoutInflation creates the timeout-inflation injector.
func NewTimeoutInflation(deps Deps) *TimeoutInflationInjector {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &TimeoutInflationInjector{deps: deps, roll: rng.Float64}
}

// Kind returns scenario.TimeoutInflation.
func (i *TimeoutInflationInjector) Kind() scenario.FaultKind { return scenario.TimeoutInflation }

// Apply wraps the clock so sleeps are multiplied by factor (default 10)
// with probability `probability` (default 0.5).
func (i *TimeoutInflationInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	factor := params.Float("factor", 10)
	if factor < 1 {
		return []error{fmt.Errorf("invalid factor %g: must be >= 1", factor)}
	}
	probability := params.Float("probability", 0.5)
	if probability < 0 || probability > 1 {
		return []error{fmt.Errorf("invalid probability %g: must be in [0.0, 1.0]", probability)}
	}

	base := i.deps.Env.Clock()
	inflated := &inflatedClock{base: base, factor: factor, probability: probability, roll: i.roll}

	restore := i.deps.Env.SwapClock(inflated)
	i.deps.Audit.Record("swap_clock", fmt.Sprintf("sleep inflation x%.0f at %.2f", factor, probability), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_clock", "original clock restored", nil)
	}()

	i.deps.Logger.Info().
		Float64("factor", factor).
		Float64("probability", probability).
		Msg("timeout inflation active")

	holdWindow(ctx, duration)
	return nil
}

// inflatedClock stretches a fraction of sleeps by a fixed factor.
type inflatedClock struct {
	base        target.Clock
	factor      float64
	probability float64
	roll        func() float64
}

func (c *inflatedClock) Now() time.Time { return c.base.Now() }

func (c *inflatedClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.roll() < c.probability {
		d = time.Duration(float64(d) * c.factor)
	}
	return c.base.Sleep(ctx, d)
}
