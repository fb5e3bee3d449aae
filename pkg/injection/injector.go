// Package injection implements one injector per fault kind. Every injector
// applies its fault for a bounded window and guarantees that the system is
// restored to its pre-injection state on every exit path, including early
// cancellation and panics in the window body.
package injection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/scenario"
	"github.com/hkwon/chaos-verify/pkg/target"
)

// ErrUnsupportedKind is returned by Registry.Lookup for fault kinds with no
// registered injector.
var ErrUnsupportedKind = errors.New("unsupported fault kind")

// Injector applies one kind of fault. Apply blocks for the fault window and
// returns the faults it observed or provoked; it must leave the system
// exactly as it found it.
type Injector interface {
	Kind() scenario.FaultKind
	Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error
}

// Registry maps fault kinds to injectors. It is populated at startup so an
// unsupported kind is a configuration-time error, not a runtime surprise.
type Registry struct {
	injectors map[scenario.FaultKind]Injector
}

// NewRegistry builds a registry from the given injectors. Registering two
// injectors for the same kind is an error.
func NewRegistry(injectors ...Injector) (*Registry, error) {
	r := &Registry{injectors: make(map[scenario.FaultKind]Injector, len(injectors))}
	for _, inj := range injectors {
		kind := inj.Kind()
		if !scenario.Known(kind) {
			return nil, fmt.Errorf("injector registered for unknown kind %q", kind)
		}
		if _, dup := r.injectors[kind]; dup {
			return nil, fmt.Errorf("duplicate injector for kind %q", kind)
		}
		r.injectors[kind] = inj
	}
	return r, nil
}

// Lookup returns the injector for kind, or an ErrUnsupportedKind error.
func (r *Registry) Lookup(kind scenario.FaultKind) (Injector, error) {
	inj, ok := r.injectors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return inj, nil
}

// Kinds returns the registered fault kinds.
func (r *Registry) Kinds() []scenario.FaultKind {
	kinds := make([]scenario.FaultKind, 0, len(r.injectors))
	for k := range r.injectors {
		kinds = append(kinds, k)
	}
	return kinds
}

// Validate checks that every scenario's kind has a registered injector.
func (r *Registry) Validate(scenarios []scenario.Scenario) error {
	for _, s := range scenarios {
		if _, err := r.Lookup(s.Kind); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return nil
}

// Deps bundles the collaborators shared by all injectors.
type Deps struct {
	Env      *target.Environment
	Provider metrics.Provider
	Logger   zerolog.Logger
	Audit    *Audit
}

// DefaultRegistry wires an injector for every supported fault kind.
func DefaultRegistry(deps Deps) (*Registry, error) {
	return NewRegistry(
		NewNetworkDelay(deps),
		NewNetworkFailure(deps),
		NewDiskExhaustion(deps),
		NewMemoryPressure(deps),
		NewCPUSpike(deps),
		NewProcessTermination(deps, SystemProcesses{}),
		NewRandomFault(deps),
		NewRateLimit(deps),
		NewDependencyFailure(deps),
		NewDataCorruption(deps),
		NewPermissionDenial(deps),
		NewTimeoutInflation(deps),
	)
}

// holdWindow blocks until the fault window closes or ctx is cancelled.
// Cancellation ends the window early; cleanup still runs because every
// injector restores via defer.
func holdWindow(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
