// Package runner executes scenario suites strictly in sequence, driving the
// system under test through an adapter while each fault window is open.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/scenario"
)

// DefaultCooldown separates consecutive scenarios so that residue from one
// fault cannot bleed into the next measurement.
const DefaultCooldown = 10 * time.Second

// SystemAdapter drives the system under test. Tick is called in a loop for
// the whole of each scenario execution; a tick that returns an error is
// expected behavior while a fault is active and is logged, never fatal.
type SystemAdapter interface {
	Tick(ctx context.Context) error
}

// AdapterFunc adapts a function to the SystemAdapter interface.
type AdapterFunc func(ctx context.Context) error

// Tick calls f.
func (f AdapterFunc) Tick(ctx context.Context) error { return f(ctx) }

// Run is the outcome of one suite execution.
type Run struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
	Results   []*engine.Result `json:"results"`
}

// Runner executes scenarios one at a time with a cooldown between them.
type Runner struct {
	engine   *engine.Engine
	adapter  SystemAdapter
	logger   zerolog.Logger
	cooldown time.Duration
	tickGap  time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCooldown overrides the pause between scenarios.
func WithCooldown(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.cooldown = d
		}
	}
}

// WithTickGap overrides the pause between adapter ticks.
func WithTickGap(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.tickGap = d
		}
	}
}

// New creates a runner. adapter may be nil when no workload should be
// driven during the fault windows.
func New(eng *engine.Engine, adapter SystemAdapter, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		engine:   eng,
		adapter:  adapter,
		logger:   logger,
		cooldown: DefaultCooldown,
		tickGap:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOne executes a single scenario. The adapter tick loop runs for the
// whole execution and is cancelled and joined before the result is
// returned.
func (r *Runner) RunOne(ctx context.Context, s scenario.Scenario) *engine.Result {
	tickCtx, stopTicks := context.WithCancel(ctx)
	ticksDone := make(chan struct{})
	go func() {
		defer close(ticksDone)
		r.tickLoop(tickCtx, s.Name)
	}()

	res := r.engine.Inject(ctx, s)

	stopTicks()
	<-ticksDone
	return res
}

// RunMany executes the scenarios strictly in order with the cooldown
// between consecutive scenarios. There is no cooldown after the last one.
// Results are returned in execution order even when ctx is cancelled
// partway through.
func (r *Runner) RunMany(ctx context.Context, scenarios []scenario.Scenario) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	r.logger.Info().
		Str("run_id", run.ID).
		Int("scenarios", len(scenarios)).
		Msg("run starting")

	for i, s := range scenarios {
		if ctx.Err() != nil {
			r.logger.Warn().Str("run_id", run.ID).Msg("run cancelled, stopping before next scenario")
			break
		}
		run.Results = append(run.Results, r.RunOne(ctx, s))

		if i < len(scenarios)-1 && r.cooldown > 0 {
			r.logger.Debug().Dur("cooldown", r.cooldown).Msg("cooling down before next scenario")
			if !sleepCtx(ctx, r.cooldown) {
				r.logger.Warn().Str("run_id", run.ID).Msg("run cancelled during cooldown")
				break
			}
		}
	}

	run.EndedAt = time.Now()
	r.logger.Info().
		Str("run_id", run.ID).
		Int("completed", len(run.Results)).
		Dur("took", run.EndedAt.Sub(run.StartedAt)).
		Msg("run finished")
	return run
}

// tickLoop drives the adapter until ctx is cancelled. Errors are the point
// of the exercise while faults are active, so they are only logged.
func (r *Runner) tickLoop(ctx context.Context, scenarioName string) {
	if r.adapter == nil {
		return
	}
	for ctx.Err() == nil {
		if err := r.adapter.Tick(ctx); err != nil {
			r.logger.Debug().
				Str("scenario", scenarioName).
				Err(err).
				Msg("adapter tick failed under fault")
		}
		if !sleepCtx(ctx, r.tickGap) {
			return
		}
	}
}

// sleepCtx pauses for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
