// Package target defines the faultable surface of the system under test.
//
// Every primitive the chaos engine can disturb (outbound dialing, file
// reads, sleeps, dependency resolution, external calls, permission checks)
// is reached through an interface held by an Environment. Injectors swap
// the implementation for the fault window and restore the original on exit,
// so nothing process-wide is ever patched.
package target

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// Fault errors surfaced to the system under test during an injection
// window. Callers should match with errors.Is.
var (
	ErrTransient        = errors.New("transient fault")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("operation timed out")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnavailable      = errors.New("dependency unavailable")
	ErrCorrupted        = errors.New("data corrupted")
	ErrPermissionDenied = errors.New("permission denied")
)

// Dialer opens outbound connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialContext calls f.
func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// Files opens files for reading.
type Files interface {
	Open(name string) (io.ReadCloser, error)
}

// FilesFunc adapts a function to the Files interface.
type FilesFunc func(name string) (io.ReadCloser, error)

// Open calls f.
func (f FilesFunc) Open(name string) (io.ReadCloser, error) { return f(name) }

// Clock provides time and interruptible sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Directory resolves logical dependency names to endpoints.
type Directory interface {
	Resolve(name string) (string, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(name string) (string, error)

// Resolve calls f.
func (f DirectoryFunc) Resolve(name string) (string, error) { return f(name) }

// Gateway routes calls to named external dependencies. The fault window
// wrappers decide per call whether the operation proceeds or fails.
type Gateway interface {
	Call(ctx context.Context, dependency string, op func() error) error
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, dependency string, op func() error) error

// Call calls f.
func (f GatewayFunc) Call(ctx context.Context, dependency string, op func() error) error {
	return f(ctx, dependency, op)
}

// Gate answers permission checks.
type Gate interface {
	Allow(action string) error
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(action string) error

// Allow calls f.
func (f GateFunc) Allow(action string) error { return f(action) }

// Environment holds the current implementation of every faultable
// primitive. Reads are cheap and safe from any goroutine; swaps are used
// only by injectors, one fault window at a time.
type Environment struct {
	mu        sync.RWMutex
	dialer    Dialer
	files     Files
	clock     Clock
	directory Directory
	gateway   Gateway
	gate      Gate
}

// NewEnvironment creates an environment backed by the real system
// primitives and an empty dependency directory.
func NewEnvironment() *Environment {
	return &Environment{
		dialer:    &net.Dialer{Timeout: 10 * time.Second},
		files:     FilesFunc(func(name string) (io.ReadCloser, error) { return os.Open(name) }),
		clock:     systemClock{},
		directory: NewStaticDirectory(nil),
		gateway:   GatewayFunc(func(_ context.Context, _ string, op func() error) error { return op() }),
		gate:      GateFunc(func(string) error { return nil }),
	}
}

// Dialer returns the current dialer.
func (e *Environment) Dialer() Dialer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dialer
}

// Files returns the current file opener.
func (e *Environment) Files() Files {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.files
}

// Clock returns the current clock.
func (e *Environment) Clock() Clock {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock
}

// Directory returns the current dependency directory.
func (e *Environment) Directory() Directory {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.directory
}

// Gateway returns the current dependency gateway.
func (e *Environment) Gateway() Gateway {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gateway
}

// Gate returns the current permission gate.
func (e *Environment) Gate() Gate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gate
}

// SwapDialer installs d and returns a func that restores the previous
// dialer. Restore must run on every exit path of the injection.
func (e *Environment) SwapDialer(d Dialer) (restore func()) {
	e.mu.Lock()
	prev := e.dialer
	e.dialer = d
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.dialer = prev
		e.mu.Unlock()
	}
}

// SwapFiles installs f and returns a restore func.
func (e *Environment) SwapFiles(f Files) (restore func()) {
	e.mu.Lock()
	prev := e.files
	e.files = f
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.files = prev
		e.mu.Unlock()
	}
}

// SwapClock installs c and returns a restore func.
func (e *Environment) SwapClock(c Clock) (restore func()) {
	e.mu.Lock()
	prev := e.clock
	e.clock = c
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.clock = prev
		e.mu.Unlock()
	}
}

// SwapDirectory installs d and returns a restore func.
func (e *Environment) SwapDirectory(d Directory) (restore func()) {
	e.mu.Lock()
	prev := e.directory
	e.directory = d
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.directory = prev
		e.mu.Unlock()
	}
}

// SwapGateway installs g and returns a restore func.
func (e *Environment) SwapGateway(g Gateway) (restore func()) {
	e.mu.Lock()
	prev := e.gateway
	e.gateway = g
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.gateway = prev
		e.mu.Unlock()
	}
}

// SwapGate installs g and returns a restore func.
func (e *Environment) SwapGate(g Gate) (restore func()) {
	e.mu.Lock()
	prev := e.gate
	e.gate = g
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.gate = prev
		e.mu.Unlock()
	}
}

// systemClock is the real-time Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StaticDirectory is a fixed name-to-endpoint table.
type StaticDirectory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewStaticDirectory creates a directory from the given table.
func NewStaticDirectory(entries map[string]string) *StaticDirectory {
	table := make(map[string]string, len(entries))
	for k, v := range entries {
		table[k] = v
	}
	return &StaticDirectory{entries: table}
}

// Register adds or replaces an entry.
func (d *StaticDirectory) Register(name, endpoint string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[name] = endpoint
}

// Resolve returns the endpoint for name, or ErrNotFound.
func (d *StaticDirectory) Resolve(name string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	endpoint, ok := d.entries[name]
	if !ok {
		return "", ErrNotFound
	}
	return endpoint, nil
}
