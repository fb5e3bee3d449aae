// Package health decides whether the system under test has returned to a
// healthy state after a fault window.
package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hkwon/chaos-verify/pkg/metrics"
	"github.com/hkwon/chaos-verify/pkg/target"
)

// Default recovery thresholds and probe settings.
const (
	DefaultCPUThreshold    = 90.0
	DefaultMemoryThreshold = 90.0
	DefaultDiskThreshold   = 95.0

	DefaultProbeAddress = "8.8.8.8:53"
	DefaultProbeTimeout = 3 * time.Second
)

// Thresholds are the resource ceilings a recovered system must be under.
type Thresholds struct {
	CPUPercent    float64 `yaml:"cpu_percent"`
	MemoryPercent float64 `yaml:"memory_percent"`
	DiskPercent   float64 `yaml:"disk_percent"`
}

// DefaultThresholds returns the standard recovery ceilings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUPercent:    DefaultCPUThreshold,
		MemoryPercent: DefaultMemoryThreshold,
		DiskPercent:   DefaultDiskThreshold,
	}
}

// Assessor judges recovery from a resource snapshot and a connectivity
// probe. Any observation failure counts as not recovered.
type Assessor struct {
	provider   metrics.Provider
	dialer     target.Dialer
	thresholds Thresholds
	probeAddr  string
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option customizes an Assessor.
type Option func(*Assessor)

// WithThresholds overrides the resource ceilings.
func WithThresholds(t Thresholds) Option {
	return func(a *Assessor) { a.thresholds = t }
}

// WithProbe overrides the connectivity probe target and timeout.
func WithProbe(addr string, timeout time.Duration) Option {
	return func(a *Assessor) {
		if addr != "" {
			a.probeAddr = addr
		}
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// NewAssessor creates an assessor that reads resource usage from provider
// and probes connectivity through dialer.
func NewAssessor(provider metrics.Provider, dialer target.Dialer, logger zerolog.Logger, opts ...Option) *Assessor {
	a := &Assessor{
		provider:   provider,
		dialer:     dialer,
		thresholds: DefaultThresholds(),
		probeAddr:  DefaultProbeAddress,
		timeout:    DefaultProbeTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsRecovered reports whether every resource reading is under its ceiling
// and the connectivity probe succeeds. The check fails closed: if usage
// cannot be read or the probe cannot complete, the system is treated as not
// recovered.
func (a *Assessor) IsRecovered(ctx context.Context) bool {
	snap, err := a.provider.Snapshot(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("recovery check failed to read resource usage")
		return false
	}

	if snap.CPUPercent >= a.thresholds.CPUPercent {
		a.logger.Debug().Float64("cpu_percent", snap.CPUPercent).Msg("cpu still above recovery ceiling")
		return false
	}
	if snap.MemoryPercent >= a.thresholds.MemoryPercent {
		a.logger.Debug().Float64("memory_percent", snap.MemoryPercent).Msg("memory still above recovery ceiling")
		return false
	}
	if snap.DiskPercent >= a.thresholds.DiskPercent {
		a.logger.Debug().Float64("disk_percent", snap.DiskPercent).Msg("disk still above recovery ceiling")
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	conn, err := a.dialer.DialContext(probeCtx, "tcp", a.probeAddr)
	if err != nil {
		a.logger.Warn().Err(err).Str("probe", a.probeAddr).Msg("connectivity probe failed")
		return false
	}
	_ = conn.Close()

	return true
}
