package injection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/hkwon/chaos-verify/pkg/scenario"
)

// Process is one running process that can be terminated.
type Process interface {
	Pid() int32
	Name() (string, error)
	Terminate() error
}

// Processes lists running processes. The system implementation wraps
// gopsutil; tests substitute a fixture.
type Processes interface {
	List(ctx context.Context) ([]Process, error)
}

// SystemProcesses lists live processes through gopsutil.
type SystemProcesses struct{}

// List returns every visible process.
func (SystemProcesses) List(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	out := make([]Process, len(procs))
	for i, p := range procs {
		out[i] = gopsProcess{p: p, ctx: ctx}
	}
	return out, nil
}

type gopsProcess struct {
	p   *process.Process
	ctx context.Context
}

func (g gopsProcess) Pid() int32 { return g.p.Pid }

func (g gopsProcess) Name() (string, error) { return g.p.NameWithContext(g.ctx) }

func (g gopsProcess) Terminate() error { return g.p.TerminateWithContext(g.ctx) }

// ProcessTerminationInjector sends a termination signal to every process
// whose name matches process_name. A missing process is not an error.
type ProcessTerminationInjector struct {
	deps  Deps
	procs Processes
}

// NewProcessTermination creates the process-termination injector.
func NewProcessTermination(deps Deps, procs Processes) *ProcessTerminationInjector {
	return &ProcessTerminationInjector{deps: deps, procs: procs}
}

// Kind returns scenario.ProcessTermination.
func (i *ProcessTerminationInjector) Kind() scenario.FaultKind { return scenario.ProcessTermination }

// Apply terminates matching processes, logging each attempt, then holds the
// remainder of the window so the system's restart behavior can be observed.
func (i *ProcessTerminationInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	name := params.String("process_name", "")
	if name == "" {
		return []error{fmt.Errorf("process_name parameter is required")}
	}

	deadline := time.Now().Add(duration)
	var captured []error

	procs, err := i.procs.List(ctx)
	if err != nil {
		captured = append(captured, err)
	}

	matched := 0
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			// Process may have exited between listing and inspection.
			continue
		}
		if !strings.Contains(pname, name) {
			continue
		}
		matched++
		err = p.Terminate()
		i.deps.Logger.Info().
			Int32("pid", p.Pid()).
			Str("process", pname).
			Err(err).
			Msg("termination signal sent")
		i.deps.Audit.Record("terminate_process", fmt.Sprintf("pid %d (%s)", p.Pid(), pname), err)
		if err != nil {
			captured = append(captured, fmt.Errorf("terminate pid %d: %w", p.Pid(), err))
		}
	}

	if matched == 0 {
		i.deps.Logger.Warn().Str("process_name", name).Msg("no matching process found")
	}

	if wait := time.Until(deadline); wait > 0 {
		holdWindow(ctx, wait)
	}
	return captured
}
