package injection

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/hkwon/chaos-verify/pkg/scenario"
	"github.com/hkwon/chaos-verify/pkg/target"
)

// NetworkDelayInjector adds latency to every outbound connection attempt
// made through the target environment's dialer.
type NetworkDelayInjector struct {
	deps Deps
}

// NewNetworkDelay creates the network-delay injector.
func NewNetworkDelay(deps Deps) *NetworkDelayInjector {
	return &NetworkDelayInjector{deps: deps}
}

// Kind returns scenario.NetworkDelay.
func (i *NetworkDelayInjector) Kind() scenario.FaultKind { return scenario.NetworkDelay }

// Apply swaps the dialer for one that sleeps delay_ms ± jitter_ms before
// every dial, holds the fault window, and restores the original dialer.
func (i *NetworkDelayInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	delay := params.Millis("delay_ms", 100*time.Millisecond)
	jitter := params.Millis("jitter_ms", 0)

	base := i.deps.Env.Dialer()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	restore := i.deps.Env.SwapDialer(&delayDialer{base: base, delay: delay, jitter: jitter, rng: rng})
	i.deps.Audit.Record("swap_dialer", fmt.Sprintf("network delay %s ± %s", delay, jitter), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_dialer", "original dialer restored", nil)
	}()

	i.deps.Logger.Info().
		Dur("delay", delay).
		Dur("jitter", jitter).
		Dur("window", duration).
		Msg("network delay active")

	holdWindow(ctx, duration)
	return nil
}

// delayDialer sleeps before delegating to the wrapped dialer.
type delayDialer struct {
	base   target.Dialer
	delay  time.Duration
	jitter time.Duration
	rng    *rand.Rand
}

func (d *delayDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	wait := d.delay
	if d.jitter > 0 {
		wait += time.Duration(d.rng.Int63n(2*int64(d.jitter))) - d.jitter
	}
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return d.base.DialContext(ctx, network, address)
}

// NetworkFailureInjector fails a fraction of outbound connection attempts.
type NetworkFailureInjector struct {
	deps Deps
	roll func() float64
}

// NewNetworkFailure creates the network-failure injector.
func NewNetworkFailure(deps Deps) *NetworkFailureInjector {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &NetworkFailureInjector{deps: deps, roll: rng.Float64}
}

// Kind returns scenario.NetworkFailure.
func (i *NetworkFailureInjector) Kind() scenario.FaultKind { return scenario.NetworkFailure }

// Apply swaps the dialer for one that refuses failure_rate of all dials
// (default 1.0: all traffic fails) for the duration of the window.
func (i *NetworkFailureInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	rate := params.Float("failure_rate", 1.0)
	if rate < 0 || rate > 1 {
		return []error{fmt.Errorf("invalid failure_rate %g: must be in [0.0, 1.0]", rate)}
	}

	base := i.deps.Env.Dialer()
	faulty := target.DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		if i.roll() < rate {
			return nil, fmt.Errorf("dial %s %s: %w", network, address, target.ErrUnavailable)
		}
		return base.DialContext(ctx, network, address)
	})

	restore := i.deps.Env.SwapDialer(faulty)
	i.deps.Audit.Record("swap_dialer", fmt.Sprintf("network failure rate %.2f", rate), nil)
	defer func() {
		restore()
		i.deps.Audit.Record("restore_dialer", "original dialer restored", nil)
	}()

	i.deps.Logger.Info().
		Float64("failure_rate", rate).
		Dur("window", duration).
		Msg("network failure active")

	holdWindow(ctx, duration)
	return nil
}
