// ABOUTME: Malgo-based microphone capture
// ABOUTME: Enumerates devices and drives a Processor from the capture callback
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
)

// PreferredInput is picked automatically when present and no microphone is configured
const PreferredInput = "VoiceMeeter Out"

// ErrDeviceUnavailable is returned when no usable capture device exists
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// DeviceInfo describes an audio endpoint
type DeviceInfo struct {
	Name    string
	Default bool
	id      malgo.DeviceID
}

// ListDevices returns the capture and playback endpoints known to the backend
func ListDevices() (inputs, outputs []DeviceInfo, err error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	inputs, err = enumerate(ctx, malgo.Capture)
	if err != nil {
		return nil, nil, err
	}
	outputs, err = enumerate(ctx, malgo.Playback)
	if err != nil {
		return nil, nil, err
	}
	return inputs, outputs, nil
}

func enumerate(ctx *malgo.AllocatedContext, kind malgo.DeviceType) ([]DeviceInfo, error) {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{
			Name:    infos[i].Name(),
			Default: infos[i].IsDefault != 0,
			id:      infos[i].ID,
		})
	}
	return devices, nil
}

// SelectDevice picks the first device whose name contains preferred
// (case-insensitive), then the default device, then the first device.
func SelectDevice(devices []DeviceInfo, preferred string) (DeviceInfo, bool) {
	if len(devices) == 0 {
		return DeviceInfo{}, false
	}

	if preferred != "" {
		want := strings.ToLower(preferred)
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), want) {
				return d, true
			}
		}
	}

	for _, d := range devices {
		if d.Default {
			return d, true
		}
	}
	return devices[0], true
}

// Device captures mono float audio from a microphone
type Device struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	proc       Processor
	name       string
	sampleRate int

	// Conversion buffer reused across callbacks
	block []float32
	// Set once proc reports it no longer wants audio
	detached atomic.Bool
	mu       sync.Mutex
}

// OpenDevice initializes the capture device matching name (see SelectDevice)
func OpenDevice(name string, sampleRate int, proc Processor) (*Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Str("component", "malgo").Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	d := &Device{
		malgoCtx:   ctx,
		proc:       proc,
		sampleRate: sampleRate,
		block:      make([]float32, sampleRate/10),
	}

	devices, err := enumerate(ctx, malgo.Capture)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	selected, ok := SelectDevice(devices, name)
	if !ok {
		d.Close()
		return nil, ErrDeviceUnavailable
	}
	d.name = selected.Name

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.Capture.DeviceID = selected.id.Pointer()
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onFrames,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.device = device

	log.Info().Str("device", d.name).Int("sample_rate", sampleRate).Msg("Capture device initialized")
	return d, nil
}

// onFrames runs on the real-time audio thread
func (d *Device) onFrames(_, pInput []byte, frameCount uint32) {
	n := int(frameCount)
	if n == 0 || len(pInput) < n*4 || d.detached.Load() {
		return
	}
	if n > len(d.block) {
		d.block = make([]float32, n)
	}
	block := d.block[:n]
	for i := range block {
		block[i] = math.Float32frombits(binary.LittleEndian.Uint32(pInput[i*4:]))
	}
	if !d.proc.Process(block) {
		d.detached.Store(true)
	}
}

// Name returns the selected device name
func (d *Device) Name() string { return d.name }

// Start begins delivering audio to the processor
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return ErrDeviceUnavailable
	}
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

// Stop halts the capture callback
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil || !d.device.IsStarted() {
		return nil
	}
	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

// Close releases the device and backend context
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.malgoCtx != nil {
		if err := d.malgoCtx.Uninit(); err != nil {
			log.Warn().Err(err).Msg("malgo context uninit error")
		}
		d.malgoCtx.Free()
		d.malgoCtx = nil
	}
	return nil
}
