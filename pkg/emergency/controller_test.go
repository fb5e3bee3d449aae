package emergency

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopFileTriggersStop(t *testing.T) {
	stopFile := filepath.Join(t.TempDir(), "stop")
	ctrl := New(Config{StopFile: stopFile, PollInterval: 10 * time.Millisecond}, zerolog.Nop())

	fired := make(chan struct{})
	ctrl.OnStop(func() { close(fired) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl.Start(ctx)

	assert.False(t, ctrl.Stopped())
	require.NoError(t, os.WriteFile(stopFile, nil, 0o644))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("stop file was not detected")
	}
	assert.True(t, ctrl.Stopped())

	select {
	case <-ctrl.StopChannel():
	default:
		t.Fatal("stop channel should be closed")
	}
}

func TestManualStopFiresOnce(t *testing.T) {
	ctrl := New(Config{StopFile: filepath.Join(t.TempDir(), "stop")}, zerolog.Nop())

	count := 0
	ctrl.OnStop(func() { count++ })

	ctrl.Stop("first")
	ctrl.Stop("second")

	assert.Equal(t, 1, count)
	assert.True(t, ctrl.Stopped())
}

func TestDefaultsApplied(t *testing.T) {
	ctrl := New(Config{}, zerolog.Nop())
	assert.Equal(t, DefaultStopFile, ctrl.StopFilePath())
	assert.False(t, ctrl.Stopped())
}
