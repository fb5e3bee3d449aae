package injection

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/hkwon/chaos-verify/pkg/scenario"
)

// Safety ceilings for the self-limiting resource injectors.
const (
	diskStopPercent   = 95.0
	memoryStopPercent = 90.0

	scratchChunkBytes = 16 << 20 // 16 MiB per scratch file
	memoryChunkBytes  = 1 << 20  // 1 MiB per allocation
)

// DiskExhaustionInjector fills scratch files until size_mb is written or
// observed disk usage crosses the safety ceiling. The scratch directory and
// every file in it are removed on all exit paths.
type DiskExhaustionInjector struct {
	deps Deps
}

// NewDiskExhaustion creates the disk-exhaustion injector.
func NewDiskExhaustion(deps Deps) *DiskExhaustionInjector {
	return &DiskExhaustionInjector{deps: deps}
}

// Kind returns scenario.DiskExhaustion.
func (i *DiskExhaustionInjector) Kind() scenario.FaultKind { return scenario.DiskExhaustion }

// Apply allocates scratch files, holds them for the remaining window, then
// deletes the scratch directory.
func (i *DiskExhaustionInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	sizeMB := params.Int("size_mb", 256)
	if sizeMB <= 0 {
		return []error{fmt.Errorf("invalid size_mb %d: must be positive", sizeMB)}
	}
	baseDir := params.String("scratch_dir", os.TempDir())

	scratch, err := os.MkdirTemp(baseDir, "chaos-scratch-")
	if err != nil {
		return []error{fmt.Errorf("failed to create scratch directory: %w", err)}
	}
	i.deps.Audit.Record("create_scratch", scratch, nil)
	defer func() {
		rmErr := os.RemoveAll(scratch)
		i.deps.Audit.Record("remove_scratch", scratch, rmErr)
		if rmErr != nil {
			i.deps.Logger.Error().Err(rmErr).Str("dir", scratch).Msg("scratch cleanup failed")
		}
	}()

	deadline := time.Now().Add(duration)
	var captured []error

	chunk := make([]byte, scratchChunkBytes)
	remaining := int64(sizeMB) << 20
	for n := 0; remaining > 0; n++ {
		if ctx.Err() != nil {
			break
		}
		snap, err := i.deps.Provider.Snapshot(ctx)
		if err != nil {
			captured = append(captured, fmt.Errorf("disk usage read failed, stopping allocation: %w", err))
			break
		}
		if snap.DiskPercent >= diskStopPercent {
			i.deps.Logger.Warn().
				Float64("disk_percent", snap.DiskPercent).
				Msg("disk usage ceiling reached, stopping allocation")
			break
		}

		size := int64(len(chunk))
		if remaining < size {
			size = remaining
		}
		name := filepath.Join(scratch, fmt.Sprintf("fill-%04d.dat", n))
		if err := os.WriteFile(name, chunk[:size], 0o600); err != nil {
			captured = append(captured, fmt.Errorf("scratch write failed: %w", err))
			break
		}
		remaining -= size
	}

	i.deps.Logger.Info().
		Int("size_mb", sizeMB).
		Str("scratch", scratch).
		Msg("disk exhaustion active")

	if wait := time.Until(deadline); wait > 0 {
		holdWindow(ctx, wait)
	}
	return captured
}

// MemoryPressureInjector allocates buffers totalling size_mb, stopping
// early past the memory safety ceiling. Buffers are released on exit.
type MemoryPressureInjector struct {
	deps Deps
}

// NewMemoryPressure creates the memory-pressure injector.
func NewMemoryPressure(deps Deps) *MemoryPressureInjector {
	return &MemoryPressureInjector{deps: deps}
}

// Kind returns scenario.MemoryPressure.
func (i *MemoryPressureInjector) Kind() scenario.FaultKind { return scenario.MemoryPressure }

// Apply allocates and touches 1 MiB chunks, holds them for the remaining
// window, then drops every reference so the allocator can reclaim them.
func (i *MemoryPressureInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	sizeMB := params.Int("size_mb", 128)
	if sizeMB <= 0 {
		return []error{fmt.Errorf("invalid size_mb %d: must be positive", sizeMB)}
	}

	deadline := time.Now().Add(duration)
	var captured []error

	buffers := make([][]byte, 0, sizeMB)
	defer func() {
		held := len(buffers)
		buffers = nil
		runtime.GC()
		i.deps.Audit.Record("release_buffers", fmt.Sprintf("%d MiB released", held), nil)
	}()

	for len(buffers) < sizeMB {
		if ctx.Err() != nil {
			break
		}
		snap, err := i.deps.Provider.Snapshot(ctx)
		if err != nil {
			captured = append(captured, fmt.Errorf("memory usage read failed, stopping allocation: %w", err))
			break
		}
		if snap.MemoryPercent >= memoryStopPercent {
			i.deps.Logger.Warn().
				Float64("memory_percent", snap.MemoryPercent).
				Msg("memory usage ceiling reached, stopping allocation")
			break
		}

		buf := make([]byte, memoryChunkBytes)
		// Touch each page so the allocation is backed by real memory.
		for off := 0; off < len(buf); off += 4096 {
			buf[off] = 1
		}
		buffers = append(buffers, buf)
	}
	i.deps.Audit.Record("allocate_buffers", fmt.Sprintf("%d MiB held", len(buffers)), nil)

	i.deps.Logger.Info().
		Int("size_mb", sizeMB).
		Int("held_mb", len(buffers)).
		Msg("memory pressure active")

	if wait := time.Until(deadline); wait > 0 {
		holdWindow(ctx, wait)
	}
	return captured
}

// CPUSpikeInjector busy-loops worker goroutines until the window closes or
// observed CPU usage reaches cpu_percent. All workers are joined before
// Apply returns.
type CPUSpikeInjector struct {
	deps Deps
}

// NewCPUSpike creates the cpu-spike injector.
func NewCPUSpike(deps Deps) *CPUSpikeInjector {
	return &CPUSpikeInjector{deps: deps}
}

// Kind returns scenario.CPUSpike.
func (i *CPUSpikeInjector) Kind() scenario.FaultKind { return scenario.CPUSpike }

// Apply runs one busy worker per CPU. A monitor goroutine stops the spike
// once the observed usage is at or above the target.
func (i *CPUSpikeInjector) Apply(ctx context.Context, params scenario.Params, duration time.Duration) []error {
	targetPercent := params.Float("cpu_percent", 80)
	if targetPercent <= 0 || targetPercent > 100 {
		return []error{fmt.Errorf("invalid cpu_percent %g: must be in (0, 100]", targetPercent)}
	}
	workers := params.Int("workers", runtime.NumCPU())
	if workers < 1 {
		workers = 1
	}

	spinCtx, stop := context.WithTimeout(ctx, duration)
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Busy cycle per the stress-ng approach: hash a small
			// buffer until told to stop.
			buf := make([]byte, 1000)
			for spinCtx.Err() == nil {
				_ = sha1.Sum(buf) //nolint:gosec
			}
		}()
	}

	var captured []error
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

monitor:
	for {
		select {
		case <-spinCtx.Done():
			break monitor
		case <-ticker.C:
			snap, err := i.deps.Provider.Snapshot(ctx)
			if err != nil {
				captured = append(captured, fmt.Errorf("cpu usage read failed, stopping spike: %w", err))
				stop()
				break monitor
			}
			if snap.CPUPercent >= targetPercent {
				i.deps.Logger.Info().
					Float64("cpu_percent", snap.CPUPercent).
					Msg("cpu target reached, stopping spike")
				stop()
				break monitor
			}
		}
	}

	// Workers must not outlive the injection.
	wg.Wait()
	i.deps.Audit.Record("join_workers", fmt.Sprintf("%d cpu workers joined", workers), nil)
	return captured
}
