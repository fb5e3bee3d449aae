package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkwon/chaos-verify/pkg/engine"
	"github.com/hkwon/chaos-verify/pkg/injection"
	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/scenario"
	"github.com/hkwon/chaos-verify/pkg/target"
)

// stubInjector stands in for a real fault for engine-level tests.
type stubInjector struct {
	kind    scenario.FaultKind
	apply   func(ctx context.Context, params scenario.Params, duration time.Duration) []error
	applied int
}

func (s *stubInjector) Kind() scenario.FaultKind { return s.kind }

func (s *stubInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	s.applied++
	if s.apply != nil {
		return s.apply(ctx, params, duration)
	}
	return nil
}

type stubChecker struct {
	recovered bool
}

func (c stubChecker) IsRecovered(context.Context) bool { return c.recovered }

func newTestEngine(t *testing.T, inj injection.Injector, checker engine.RecoveryChecker, opts ...engine.Option) *engine.Engine {
	t.Helper()
	reg, err := injection.NewRegistry(inj)
	require.NoError(t, err)
	provider := &metrics.Static{Snap: metrics.Snapshot{CPUPercent: 10, MemoryPercent: 20, DiskPercent: 30}}
	return engine.New(reg, provider, checker, zerolog.Nop(), opts...)
}

func testScenario(kind scenario.FaultKind) scenario.Scenario {
	return scenario.Scenario{
		Name:        "test",
		Kind:        kind,
		Impact:      scenario.ImpactLow,
		Duration:    20 * time.Millisecond,
		Probability: 1.0,
	}.Normalize()
}

func TestInjectSkipsOnProbabilityGate(t *testing.T) {
	inj := &stubInjector{kind: scenario.NetworkDelay}
	eng := newTestEngine(t, inj, stubChecker{recovered: true},
		engine.WithRoll(func() float64 { return 0.5 }),
	)

	s := testScenario(scenario.NetworkDelay)
	s.Probability = 0.0
	s.Duration = time.Hour

	start := time.Now()
	res := eng.Inject(context.Background(), s)

	assert.Less(t, time.Since(start), 100*time.Millisecond, "a skip must return immediately")
	assert.True(t, res.Skipped)
	assert.True(t, res.SystemRecovered)
	assert.True(t, res.EndedAt.IsZero())
	assert.Equal(t, time.Duration(0), res.Duration())
	assert.Nil(t, res.MetricsBefore, "a skip captures no metrics")
	assert.Nil(t, res.MetricsAfter)
	assert.Zero(t, inj.applied, "a skip runs no injector")
	require.NotEmpty(t, res.Log)
	assert.Contains(t, res.Log[0], "skipped")
}

func TestInjectRunsFullWindow(t *testing.T) {
	inj := &stubInjector{
		kind: scenario.NetworkDelay,
		apply: func(ctx context.Context, _ scenario.Params, duration time.Duration) []error {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			return nil
		},
	}
	eng := newTestEngine(t, inj, stubChecker{recovered: true})

	s := testScenario(scenario.NetworkDelay)
	s.Duration = 50 * time.Millisecond

	res := eng.Inject(context.Background(), s)

	assert.Equal(t, 1, inj.applied)
	assert.True(t, res.SystemRecovered)
	require.NotNil(t, res.RecoveryTime)
	assert.True(t, res.EndedAt.After(res.StartedAt))
	assert.GreaterOrEqual(t, res.Duration(), 50*time.Millisecond)
	require.NotNil(t, res.MetricsBefore)
	require.NotNil(t, res.MetricsAfter)
	assert.True(t, res.Passed(engine.Policy{}))
}

func TestInjectCapturesInjectorErrors(t *testing.T) {
	inj := &stubInjector{
		kind: scenario.RateLimit,
		apply: func(context.Context, scenario.Params, time.Duration) []error {
			return []error{target.ErrRateLimited}
		},
	}
	eng := newTestEngine(t, inj, stubChecker{recovered: false})

	s := testScenario(scenario.RateLimit)
	s.Impact = scenario.ImpactHigh

	res := eng.Inject(context.Background(), s)

	require.Len(t, res.ErrorsCaught, 1)
	assert.ErrorIs(t, res.ErrorsCaught[0], target.ErrRateLimited)
	assert.False(t, res.SystemRecovered)
	assert.True(t, res.Passed(engine.Policy{}), "high impact passes when the fault was observed")
}

func TestInjectSurvivesInjectorPanic(t *testing.T) {
	env := target.NewEnvironment()
	original := env.Dialer()

	inj := &stubInjector{
		kind: scenario.NetworkFailure,
		apply: func(context.Context, scenario.Params, time.Duration) []error {
			restore := env.SwapDialer(target.DialerFunc(nil))
			defer restore()
			panic("boom")
		},
	}
	eng := newTestEngine(t, inj, stubChecker{recovered: true})

	res := eng.Inject(context.Background(), testScenario(scenario.NetworkFailure))

	require.Len(t, res.ErrorsCaught, 1)
	assert.ErrorContains(t, res.ErrorsCaught[0], "panicked")
	assert.False(t, res.EndedAt.IsZero(), "a panicking injector still yields a finalized result")
	require.NotNil(t, res.MetricsBefore)
	require.NotNil(t, res.MetricsAfter)
	assert.Equal(t, original, env.Dialer(), "the injector's deferred restore ran before the panic escaped")
}

func TestInjectUnsupportedKindIsCapturedNotFatal(t *testing.T) {
	inj := &stubInjector{kind: scenario.NetworkDelay}
	eng := newTestEngine(t, inj, stubChecker{recovered: true})

	res := eng.Inject(context.Background(), testScenario(scenario.DiskExhaustion))

	require.Len(t, res.ErrorsCaught, 1)
	assert.ErrorIs(t, res.ErrorsCaught[0], injection.ErrUnsupportedKind)
	assert.False(t, res.EndedAt.IsZero())
	require.NotNil(t, res.MetricsBefore)
	require.NotNil(t, res.MetricsAfter)
	assert.Zero(t, inj.applied)
}

func TestInjectNotRecoveredLeavesRecoveryTimeNil(t *testing.T) {
	inj := &stubInjector{kind: scenario.NetworkDelay}
	eng := newTestEngine(t, inj, stubChecker{recovered: false})

	res := eng.Inject(context.Background(), testScenario(scenario.NetworkDelay))

	assert.False(t, res.SystemRecovered)
	assert.Nil(t, res.RecoveryTime)
	assert.False(t, res.Passed(engine.Policy{}), "low impact without recovery fails")
}

type recordingObserver struct {
	started  int
	finished int
	passed   []bool
}

func (o *recordingObserver) InjectionStarted(scenario.Scenario) { o.started++ }

func (o *recordingObserver) InjectionFinished(_ *engine.Result, passed bool) {
	o.finished++
	o.passed = append(o.passed, passed)
}

func TestObserverSeesLifecycle(t *testing.T) {
	obs := &recordingObserver{}
	inj := &stubInjector{kind: scenario.NetworkDelay}
	eng := newTestEngine(t, inj, stubChecker{recovered: true}, engine.WithObserver(obs))

	eng.Inject(context.Background(), testScenario(scenario.NetworkDelay))

	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, obs.finished)
	require.Len(t, obs.passed, 1)
	assert.True(t, obs.passed[0])
}
