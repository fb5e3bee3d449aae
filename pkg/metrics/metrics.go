// Package metrics reads point-in-time resource snapshots for the chaos
// engine. Snapshots are captured before and after every injection and feed
// both the recovery assessment and the report's before/after delta.
package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is an immutable point-in-time view of system resources.
type Snapshot struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskPercent   float64   `json:"disk_percent"`
	OpenHandles   int       `json:"open_handles"`
	Goroutines    int       `json:"goroutines"`
	CapturedAt    time.Time `json:"captured_at"`
}

// Delta describes the change between two snapshots.
type Delta struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	OpenHandles   int
	Goroutines    int
}

// Diff computes after minus before for every resource dimension.
func Diff(before, after Snapshot) Delta {
	return Delta{
		CPUPercent:    after.CPUPercent - before.CPUPercent,
		MemoryPercent: after.MemoryPercent - before.MemoryPercent,
		DiskPercent:   after.DiskPercent - before.DiskPercent,
		OpenHandles:   after.OpenHandles - before.OpenHandles,
		Goroutines:    after.Goroutines - before.Goroutines,
	}
}

// Provider captures resource snapshots.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// SystemProvider reads live metrics through gopsutil.
type SystemProvider struct {
	// DiskPath is the mount point measured for disk usage. Defaults to "/".
	DiskPath string
}

// NewSystemProvider creates a provider that measures the root filesystem.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{DiskPath: "/"}
}

// Snapshot captures current CPU, memory, disk, handle and goroutine usage.
// CPU percent is measured since the previous call; the first call in a
// process reports 0.
func (p *SystemProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Goroutines: runtime.NumGoroutine(),
		CapturedAt: time.Now(),
	}

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(cpuPercents) > 0 {
		snap.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read memory usage: %w", err)
	}
	snap.MemoryPercent = vm.UsedPercent

	diskPath := p.DiskPath
	if diskPath == "" {
		diskPath = "/"
	}
	usage, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read disk usage for %s: %w", diskPath, err)
	}
	snap.DiskPercent = usage.UsedPercent

	// Handle count is best-effort; not every platform exposes it.
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if fds, err := proc.NumFDsWithContext(ctx); err == nil {
			snap.OpenHandles = int(fds)
		}
	}

	return snap, nil
}

// Static is a fixed-value provider for tests.
type Static struct {
	Snap Snapshot
	Err  error
}

// Snapshot returns the configured snapshot stamped with the current time.
func (s *Static) Snapshot(_ context.Context) (Snapshot, error) {
	if s.Err != nil {
		return Snapshot{}, s.Err
	}
	snap := s.Snap
	snap.CapturedAt = time.Now()
	return snap, nil
}
