// Package emergency aborts a verification run from the outside: a stop
// file appearing on disk or an interrupt signal cancels the run while every
// injector's cleanup path still executes.
package emergency

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStopFile is watched when no stop file is configured.
const DefaultStopFile = "/tmp/chaos-verify-stop"

// Config contains emergency controller configuration.
type Config struct {
	// StopFile is the path whose existence triggers a stop.
	StopFile string

	// PollInterval for checking the stop file.
	PollInterval time.Duration

	// EnableSignalHandlers enables SIGINT/SIGTERM handling.
	EnableSignalHandlers bool
}

// Controller watches for stop conditions and fans the stop out to the run.
type Controller struct {
	stopFile     string
	pollInterval time.Duration
	signals      bool
	logger       zerolog.Logger

	mu        sync.RWMutex
	stopped   bool
	stopCh    chan struct{}
	callbacks []func()
}

// New creates an emergency controller.
func New(cfg Config, logger zerolog.Logger) *Controller {
	if cfg.StopFile == "" {
		cfg.StopFile = DefaultStopFile
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	return &Controller{
		stopFile:     cfg.StopFile,
		pollInterval: cfg.PollInterval,
		signals:      cfg.EnableSignalHandlers,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start begins watching. Watching ends when ctx is cancelled or a stop
// fires.
func (c *Controller) Start(ctx context.Context) {
	go c.watchStopFile(ctx)
	if c.signals {
		go c.watchSignals(ctx)
	}
}

// StopFilePath returns the watched stop file path.
func (c *Controller) StopFilePath() string { return c.stopFile }

// Stopped reports whether a stop has been triggered.
func (c *Controller) Stopped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

// StopChannel closes when a stop is triggered.
func (c *Controller) StopChannel() <-chan struct{} { return c.stopCh }

// OnStop registers a callback that runs when a stop is triggered.
func (c *Controller) OnStop(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

// Stop triggers a stop manually.
func (c *Controller) Stop(reason string) {
	c.trigger(reason)
}

func (c *Controller) watchStopFile(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(c.stopFile); err == nil {
				c.logger.Warn().Str("stop_file", c.stopFile).Msg("emergency stop file detected")
				c.trigger("stop file detected")
				return
			}
		}
	}
}

func (c *Controller) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		c.logger.Warn().Str("signal", sig.String()).Msg("emergency stop signal received")
		c.trigger(fmt.Sprintf("signal: %v", sig))
	}
}

func (c *Controller) trigger(reason string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stopCh)
	callbacks := make([]func(), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	c.logger.Error().Str("reason", reason).Msg("emergency stop triggered")
	for _, callback := range callbacks {
		callback()
	}
}
