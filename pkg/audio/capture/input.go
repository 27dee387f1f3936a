// ABOUTME: Startable capture inputs for sessions
// ABOUTME: Wraps a microphone device or a pumped Source behind one interface
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Input produces captured audio into a Processor between Start and Stop
type Input interface {
	Start(proc Processor) error
	Stop() error
	Name() string
}

// DeviceInput opens the named microphone on every Start
type DeviceInput struct {
	device     string
	sampleRate int

	mu  sync.Mutex
	dev *Device
}

// NewDeviceInput creates an input for the device matching name (empty selects
// PreferredInput or the system default)
func NewDeviceInput(name string, sampleRate int) *DeviceInput {
	return &DeviceInput{device: name, sampleRate: sampleRate}
}

// Start opens the device and begins capturing
func (in *DeviceInput) Start(proc Processor) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.dev != nil {
		return fmt.Errorf("capture already started")
	}

	name := in.device
	if name == "" {
		name = PreferredInput
	}

	dev, err := OpenDevice(name, in.sampleRate, proc)
	if err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	in.dev = dev
	return nil
}

// Stop halts capture and releases the device
func (in *DeviceInput) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.dev == nil {
		return nil
	}
	err := in.dev.Stop()
	in.dev.Close()
	in.dev = nil
	return err
}

// Name returns the opened device name, or the configured one before Start
func (in *DeviceInput) Name() string {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.dev != nil {
		return in.dev.Name()
	}
	if in.device == "" {
		return "default"
	}
	return in.device
}

// SourceInput pumps a freshly opened Source on every Start
type SourceInput struct {
	name string
	open func() (Source, error)
	cfg  PumpConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSourceInput creates an input that calls open on each Start
func NewSourceInput(name string, open func() (Source, error), cfg PumpConfig) *SourceInput {
	return &SourceInput{name: name, open: open, cfg: cfg}
}

// Start opens the source and pumps it in the background
func (in *SourceInput) Start(proc Processor) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.cancel != nil {
		return fmt.Errorf("capture already started")
	}

	src, err := in.open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	in.cancel = cancel
	in.done = done

	go func() {
		defer close(done)
		defer src.Close()
		if err := Pump(ctx, src, proc, in.cfg); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("input", in.name).Msg("Capture source failed")
		}
	}()
	return nil
}

// Stop cancels the pump and waits for it to exit
func (in *SourceInput) Stop() error {
	in.mu.Lock()
	cancel, done := in.cancel, in.done
	in.cancel, in.done = nil, nil
	in.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Name returns the source description
func (in *SourceInput) Name() string { return in.name }
