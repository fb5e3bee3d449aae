// Package engine executes single fault injections: it gates on probability,
// captures metrics around the fault window, judges recovery and produces an
// immutable Result. Running scenarios in sequence is the runner's job.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkwon/chaos-verify/pkg/injection"
	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

// DefaultCheckInterval is how often the recovery checker is re-polled when
// a recovery grace period is configured.
const DefaultCheckInterval = time.Second

// RecoveryChecker judges whether the system under test is healthy again.
type RecoveryChecker interface {
	IsRecovered(ctx context.Context) bool
}

// Observer receives engine lifecycle events. The monitoring package
// implements it to export Prometheus metrics.
type Observer interface {
	InjectionStarted(s scenario.Scenario)
	InjectionFinished(res *Result, passed bool)
}

type nopObserver struct{}

func (nopObserver) InjectionStarted(scenario.Scenario) {}
func (nopObserver) InjectionFinished(*Result, bool) {}

// Engine runs one scenario at a time.
type Engine struct {
	registry *injection.Registry
	provider metrics.Provider
	checker  RecoveryChecker
	logger   zerolog.Logger
	policy   Policy
	observer Observer

	roll          func() float64
	checkInterval time.Duration
	recoveryGrace time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPolicy overrides the verdict policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithObserver installs a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithRoll overrides the probability roll, for deterministic tests.
func WithRoll(roll func() float64) Option {
	return func(e *Engine) { e.roll = roll }
}

// WithRecoveryGrace keeps re-polling the recovery checker every interval
// for up to grace after the fault window closes, instead of judging on a
// single check.
func WithRecoveryGrace(grace, interval time.Duration) Option {
	return func(e *Engine) {
		if grace > 0 {
			e.recoveryGrace = grace
		}
		if interval > 0 {
			e.checkInterval = interval
		}
	}
}

// New creates an engine.
func New(registry *injection.Registry, provider metrics.Provider, checker RecoveryChecker, logger zerolog.Logger, opts ...Option) *Engine {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &Engine{
		registry:      registry,
		provider:      provider,
		checker:       checker,
		logger:        logger,
		observer:      nopObserver{},
		roll:          rng.Float64,
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's verdict policy.
func (e *Engine) Policy() Policy { return e.policy }

// Inject runs one scenario to completion and returns its Result. The fault
// worker is always joined and the environment restored before the Result is
// finalized, even when the injector panics or ctx is cancelled mid-window.
func (e *Engine) Inject(ctx context.Context, s scenario.Scenario) *Result {
	s = s.Normalize()
	res := &Result{
		Scenario:  s,
		StartedAt: time.Now(),
	}

	// Probability gate. A skipped scenario does no work at all: no
	// snapshots, no injector, no recovery check.
	if e.roll() >= s.Probability {
		res.Skipped = true
		res.SystemRecovered = true
		res.appendLog("skipped by probability gate (p=%.2f)", s.Probability)
		e.logger.Info().
			Str("scenario", s.Name).
			Float64("probability", s.Probability).
			Msg("scenario skipped by probability gate")
		e.observer.InjectionFinished(res, true)
		return res
	}

	e.observer.InjectionStarted(s)
	e.logger.Info().
		Str("scenario", s.Name).
		Str("kind", string(s.Kind)).
		Str("impact", string(s.Impact)).
		Dur("duration", s.Duration).
		Msg("injection starting")
	res.appendLog("injection started: kind=%s impact=%s duration=%s", s.Kind, s.Impact, s.Duration)

	before, err := e.provider.Snapshot(ctx)
	if err != nil {
		res.ErrorsCaught = append(res.ErrorsCaught, fmt.Errorf("metrics before injection: %w", err))
		res.appendLog("metrics capture before injection failed: %v", err)
	}
	res.MetricsBefore = &before

	if inj, err := e.registry.Lookup(s.Kind); err != nil {
		res.ErrorsCaught = append(res.ErrorsCaught, err)
		res.appendLog("injection aborted: %v", err)
	} else {
		for _, ferr := range e.runFault(ctx, inj, s) {
			res.ErrorsCaught = append(res.ErrorsCaught, ferr)
			res.appendLog("fault observed: %v", ferr)
		}
	}

	e.finalize(ctx, res)
	passed := res.Passed(e.policy)
	e.observer.InjectionFinished(res, passed)
	e.logger.Info().
		Str("scenario", s.Name).
		Bool("passed", passed).
		Bool("recovered", res.SystemRecovered).
		Int("errors", len(res.ErrorsCaught)).
		Dur("took", res.Duration()).
		Msg("injection finished")
	return res
}

// runFault executes the injector on a worker goroutine and joins it. A
// panic in the injector is converted into a captured error; the injector's
// own deferred restores have already run by the time the panic propagates.
func (e *Engine) runFault(ctx context.Context, inj injection.Injector, s scenario.Scenario) []error {
	done := make(chan []error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- []error{fmt.Errorf("injector %s panicked: %v", s.Kind, r)}
			}
		}()
		done <- inj.Apply(ctx, s.Parameters, s.Duration)
	}()
	return <-done
}

// finalize captures the post-window snapshot, judges recovery and stamps
// the end time. It runs on every non-skipped path.
func (e *Engine) finalize(ctx context.Context, res *Result) {
	after, err := e.provider.Snapshot(ctx)
	if err != nil {
		res.ErrorsCaught = append(res.ErrorsCaught, fmt.Errorf("metrics after injection: %w", err))
		res.appendLog("metrics capture after injection failed: %v", err)
	}
	res.MetricsAfter = &after

	if e.assessRecovery(ctx) {
		res.SystemRecovered = true
		rt := time.Since(res.StartedAt)
		res.RecoveryTime = &rt
		res.appendLog("system recovered, recovery time %s", rt.Truncate(time.Millisecond))
	} else {
		res.appendLog("system not recovered after fault window")
	}

	res.EndedAt = time.Now()
}

// assessRecovery runs the checker once, or re-polls within the configured
// grace period. The default is a single check so a run's duration tracks
// the scenario's fault window.
func (e *Engine) assessRecovery(ctx context.Context) bool {
	start := time.Now()
	for {
		if e.checker.IsRecovered(ctx) {
			return true
		}
		if ctx.Err() != nil || time.Since(start) >= e.recoveryGrace {
			return false
		}
		timer := time.NewTimer(e.checkInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (r *Result) appendLog(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf("%s %s",
		time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...)))
}
