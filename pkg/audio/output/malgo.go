// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Plays a Timeline on a selectable device via miniaudio callbacks
package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	deviceName string

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	timeline *Timeline
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output for the device whose name contains
// deviceName, or the default device when empty
func NewMalgo(deviceName string) *Malgo {
	return &Malgo{deviceName: deviceName}
}

// Open initializes the playback device and starts pulling from the timeline
func (m *Malgo) Open(timeline *Timeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		log.Debug().Msg("Audio output already initialized, reusing device")
		return nil
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(timeline.SampleRate())
	deviceConfig.Alsa.NoMMap = 1

	name := "default"
	if m.deviceName != "" {
		infos, err := m.malgoCtx.Devices(malgo.Playback)
		if err != nil {
			return fmt.Errorf("failed to enumerate playback devices: %w", err)
		}
		want := strings.ToLower(m.deviceName)
		for i := range infos {
			if strings.Contains(strings.ToLower(infos[i].Name()), want) {
				deviceConfig.Playback.DeviceID = infos[i].ID.Pointer()
				name = infos[i].Name()
				break
			}
		}
		if name == "default" {
			log.Warn().Str("device", m.deviceName).Msg("Playback device not found, using default")
		}
	}

	m.timeline = timeline
	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			m.timeline.Read(pOutput[:int(frameCount)*2])
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	log.Info().Str("device", name).Int("sample_rate", timeline.SampleRate()).Str("backend", "malgo").Msg("Audio output initialized")

	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Warn().Err(err).Msg("device stop error")
		}
		m.device.Uninit()
		m.device = nil
	}

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Warn().Err(err).Msg("malgo context uninit error")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}
