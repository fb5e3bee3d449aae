package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	before := Snapshot{CPUPercent: 10, MemoryPercent: 40, DiskPercent: 55, OpenHandles: 12, Goroutines: 8}
	after := Snapshot{CPUPercent: 35, MemoryPercent: 42, DiskPercent: 55, OpenHandles: 15, Goroutines: 6}

	d := Diff(before, after)
	assert.Equal(t, 25.0, d.CPUPercent)
	assert.Equal(t, 2.0, d.MemoryPercent)
	assert.Equal(t, 0.0, d.DiskPercent)
	assert.Equal(t, 3, d.OpenHandles)
	assert.Equal(t, -2, d.Goroutines)
}

func TestStaticProvider(t *testing.T) {
	s := &Static{Snap: Snapshot{CPUPercent: 50}}
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, snap.CPUPercent)
	assert.False(t, snap.CapturedAt.IsZero())

	s.Err = assert.AnError
	_, err = s.Snapshot(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSystemProviderCapturesSnapshot(t *testing.T) {
	p := NewSystemProvider()
	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Greater(t, snap.Goroutines, 0)
	assert.GreaterOrEqual(t, snap.MemoryPercent, 0.0)
	assert.LessOrEqual(t, snap.MemoryPercent, 100.0)
	assert.GreaterOrEqual(t, snap.DiskPercent, 0.0)
	assert.False(t, snap.CapturedAt.IsZero())
}
