// ABOUTME: Sample-accurate playout timeline
// ABOUTME: Places scheduled audio on a frame clock and renders PCM16 with silence in gaps
package output

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
)

// segment is a run of samples starting at an absolute frame
type segment struct {
	start   int64
	samples []float32
}

func (s segment) end() int64 { return s.start + int64(len(s.samples)) }

// Timeline is the playback clock and sink for one mono stream.
// The clock advances by the frames the output backend has read, so Now
// tracks what has been handed to the device.
type Timeline struct {
	sampleRate int

	mu       sync.Mutex
	position int64
	segments []segment
	volume   int
	muted    bool
	level    float64
	closed   bool

	scratch []float32
}

// NewTimeline creates a timeline at the given sample rate
func NewTimeline(sampleRate int) *Timeline {
	return &Timeline{
		sampleRate: sampleRate,
		volume:     100,
	}
}

// SampleRate returns the timeline rate
func (t *Timeline) SampleRate() int { return t.sampleRate }

// Now returns the current playback position
func (t *Timeline) Now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return audio.Duration(int(t.position), t.sampleRate)
}

// Enqueue places samples so that they start playing at the given time and
// returns the start actually used. Audio whose start has already been read
// out moves to the current position, and audio that would overlap queued
// audio moves to the end of the queue. Nothing is dropped.
func (t *Timeline) Enqueue(at time.Duration, samples []float32, sampleRate int) (time.Duration, error) {
	if sampleRate != t.sampleRate {
		return 0, fmt.Errorf("sample rate mismatch: timeline %dHz, audio %dHz", t.sampleRate, sampleRate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, io.ErrClosedPipe
	}

	start := int64(math.Round(at.Seconds() * float64(t.sampleRate)))
	if start < t.position {
		start = t.position
	}
	if n := len(t.segments); n > 0 {
		start = max(start, t.segments[n-1].end())
	}

	if len(samples) > 0 {
		owned := make([]float32, len(samples))
		copy(owned, samples)
		t.segments = append(t.segments, segment{start: start, samples: owned})
	}
	return audio.Duration(int(start), t.sampleRate), nil
}

// Read renders mono PCM16 little-endian audio and advances the clock.
// Gaps between segments are rendered as silence.
func (t *Timeline) Read(p []byte) (int, error) {
	frames := len(p) / 2
	if frames == 0 {
		return 0, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, io.EOF
	}

	if cap(t.scratch) < frames {
		t.scratch = make([]float32, frames)
	}
	out := t.scratch[:frames]
	t.render(out)

	for i, s := range out {
		v := audio.SampleToInt16(s)
		p[i*2] = byte(v)
		p[i*2+1] = byte(uint16(v) >> 8)
	}
	return frames * 2, nil
}

// ReadSamples renders float samples and advances the clock
func (t *Timeline) ReadSamples(out []float32) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}
	t.render(out)
	return len(out)
}

// render fills out from position onwards (must hold t.mu)
func (t *Timeline) render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	from := t.position
	to := from + int64(len(out))

	consumed := 0
	for _, seg := range t.segments {
		if seg.start >= to {
			break
		}
		lo := max(seg.start, from)
		hi := min(seg.end(), to)
		if hi > lo {
			copy(out[lo-from:hi-from], seg.samples[lo-seg.start:hi-seg.start])
		}
		if seg.end() <= to {
			consumed++
		}
	}
	if consumed > 0 {
		t.segments = append(t.segments[:0], t.segments[consumed:]...)
	}

	gain := float32(t.volume) / 100
	if t.muted {
		gain = 0
	}
	var peak float32
	for i, s := range out {
		s *= gain
		out[i] = s
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	t.level = float64(peak)
	t.position = to
}

// Buffered returns how much queued audio remains ahead of the clock
func (t *Timeline) Buffered() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.segments) == 0 {
		return 0
	}
	ahead := t.segments[len(t.segments)-1].end() - t.position
	if ahead < 0 {
		return 0
	}
	return audio.Duration(int(ahead), t.sampleRate)
}

// Clear drops all queued audio
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = nil
}

// Level returns the peak level of the most recently rendered block
func (t *Timeline) Level() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// SetVolume sets the volume (0-100)
func (t *Timeline) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	t.mu.Lock()
	t.volume = volume
	t.mu.Unlock()
}

// SetMuted sets mute state
func (t *Timeline) SetMuted(muted bool) {
	t.mu.Lock()
	t.muted = muted
	t.mu.Unlock()
}

// Volume returns the current volume and mute state
func (t *Timeline) Volume() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume, t.muted
}

// Close ends the stream; readers get io.EOF
func (t *Timeline) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.segments = nil
	return nil
}
