// ABOUTME: Non-microphone capture sources
// ABOUTME: Feeds audio files or a test tone through the capture processor in real time
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio/decode"
	"github.com/Sendspin/livetranslate-go/pkg/audio/resample"
	"github.com/rs/zerolog/log"
)

// Source provides mono float samples at its native rate
type Source interface {
	// Read fills samples and returns the number read
	Read(samples []float32) (int, error)
	// SampleRate returns the native sample rate
	SampleRate() int
	// Close releases the source
	Close() error
}

// NewFileSource opens an MP3 or FLAC file as a capture source
func NewFileSource(path string) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var source Source
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		source, err = decode.NewMP3(f)
	case ".flac":
		source, err = decode.NewFLAC(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("file", filepath.Base(path)).Int("sample_rate", source.SampleRate()).Msg("Loaded audio file")
	return source, nil
}

// ToneSource generates a sine wave
type ToneSource struct {
	frequency   float64
	sampleRate  int
	amplitude   float64
	sampleIndex uint64
}

// NewToneSource creates a sine generator at half amplitude
func NewToneSource(frequency float64, sampleRate int) *ToneSource {
	return &ToneSource{
		frequency:  frequency,
		sampleRate: sampleRate,
		amplitude:  0.5,
	}
}

// Read fills samples with the next part of the sine wave
func (s *ToneSource) Read(samples []float32) (int, error) {
	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		samples[i] = float32(math.Sin(2*math.Pi*s.frequency*t) * s.amplitude)
	}
	s.sampleIndex += uint64(len(samples))
	return len(samples), nil
}

func (s *ToneSource) SampleRate() int { return s.sampleRate }
func (s *ToneSource) Close() error    { return nil }

// PumpConfig controls how a Source is fed to a Processor
type PumpConfig struct {
	// TargetRate is the rate the processor expects
	TargetRate int
	// Block is the pacing interval (default 20ms)
	Block time.Duration
	// Realtime paces delivery to wall-clock time; false delivers as fast as possible
	Realtime bool
}

// Pump reads src until EOF, resamples it to cfg.TargetRate and feeds proc.
// It returns nil on EOF and ctx.Err() on cancellation.
func Pump(ctx context.Context, src Source, proc Processor, cfg PumpConfig) error {
	if cfg.Block <= 0 {
		cfg.Block = 20 * time.Millisecond
	}

	var resampler *resample.Resampler
	if src.SampleRate() != cfg.TargetRate {
		resampler = resample.New(src.SampleRate(), cfg.TargetRate)
	}

	block := make([]float32, int(int64(src.SampleRate())*int64(cfg.Block)/int64(time.Second)))
	if len(block) == 0 {
		block = make([]float32, 1)
	}

	var ticker *time.Ticker
	if cfg.Realtime {
		ticker = time.NewTicker(cfg.Block)
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := src.Read(block)
		if n > 0 {
			samples := block[:n]
			if resampler != nil {
				samples = resampler.Resample(samples)
			}
			if !proc.Process(samples) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("source read failed: %w", err)
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
