package injection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkwon/chaos-verify/pkg/scenario"
)

type fakeProcess struct {
	pid        int32
	name       string
	nameErr    error
	termErr    error
	terminated bool
}

func (p *fakeProcess) Pid() int32 { return p.pid }

func (p *fakeProcess) Name() (string, error) { return p.name, p.nameErr }

func (p *fakeProcess) Terminate() error {
	p.terminated = true
	return p.termErr
}

type fakeProcesses struct {
	procs   []Process
	listErr error
}

func (f fakeProcesses) List(context.Context) ([]Process, error) { return f.procs, f.listErr }

func TestProcessTerminationMatchesBySubstring(t *testing.T) {
	victim := &fakeProcess{pid: 101, name: "payment-worker"}
	other := &fakeProcess{pid: 102, name: "unrelated"}
	gone := &fakeProcess{pid: 103, nameErr: assert.AnError}

	inj := NewProcessTermination(testDeps(t), fakeProcesses{procs: []Process{victim, other, gone}})
	errs := inj.Apply(context.Background(), scenario.Params{"process_name": "payment"}, 10*time.Millisecond)
	require.Empty(t, errs)

	assert.True(t, victim.terminated)
	assert.False(t, other.terminated)
}

func TestProcessTerminationNoMatchIsNotAnError(t *testing.T) {
	inj := NewProcessTermination(testDeps(t), fakeProcesses{})
	errs := inj.Apply(context.Background(), scenario.Params{"process_name": "ghost"}, 10*time.Millisecond)
	assert.Empty(t, errs)
}

func TestProcessTerminationCapturesTerminateError(t *testing.T) {
	stubborn := &fakeProcess{pid: 7, name: "stubborn", termErr: assert.AnError}

	inj := NewProcessTermination(testDeps(t), fakeProcesses{procs: []Process{stubborn}})
	errs := inj.Apply(context.Background(), scenario.Params{"process_name": "stubborn"}, 10*time.Millisecond)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "terminate pid 7")
}

func TestProcessTerminationRequiresName(t *testing.T) {
	inj := NewProcessTermination(testDeps(t), fakeProcesses{})
	errs := inj.Apply(context.Background(), scenario.Params{}, time.Millisecond)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "process_name parameter is required")
}
