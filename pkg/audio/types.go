// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, stream constants and sample helpers
package audio

import (
	"math"
	"time"
)

const (
	// CaptureSampleRate is the rate microphone audio is captured and sent at
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the rate of synthesized audio returned by the service
	PlaybackSampleRate = 24000

	// DefaultWindow is how much audio is accumulated before a chunk is sent
	DefaultWindow = 5 * time.Second

	// MimePCM is the mime type of outgoing media chunks
	MimePCM = "audio/pcm"

	// PCM16 scaling: negative samples use the full negative range
	MaxInt16Scale = 32767.0
	MinInt16Scale = 32768.0
)

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// CaptureFormat is the outgoing stream format (mono PCM16 at 16kHz)
var CaptureFormat = Format{Codec: "pcm", SampleRate: CaptureSampleRate, Channels: 1, BitDepth: 16}

// PlaybackFormat is the incoming stream format (mono PCM16 at 24kHz)
var PlaybackFormat = Format{Codec: "pcm", SampleRate: PlaybackSampleRate, Channels: 1, BitDepth: 16}

// Capacity returns the number of samples held by a window at the given rate
func Capacity(sampleRate int, window time.Duration) int {
	return int(int64(sampleRate) * int64(window) / int64(time.Second))
}

// Duration returns the playback length of n samples at sampleRate
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(sampleRate))
}

// Clamp limits a sample to [-1, 1]
func Clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// SampleToInt16 converts a normalized float sample to int16
func SampleToInt16(s float32) int16 {
	s = Clamp(s)
	if s < 0 {
		return int16(math.Round(float64(s) * MinInt16Scale))
	}
	return int16(math.Round(float64(s) * MaxInt16Scale))
}

// SampleFromInt16 converts an int16 sample to a normalized float
func SampleFromInt16(v int16) float32 {
	if v < 0 {
		return float32(float64(v) / MinInt16Scale)
	}
	return float32(float64(v) / MaxInt16Scale)
}

// Level returns the peak absolute amplitude of samples in [0, 1]
func Level(samples []float32) float64 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak > 1 {
		peak = 1
	}
	return float64(peak)
}
