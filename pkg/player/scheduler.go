// ABOUTME: Gap-free playback scheduler
// ABOUTME: Queues decoded chunks back to back on the playback clock
package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/Sendspin/livetranslate-go/pkg/audio/decode"
	"github.com/rs/zerolog/log"
)

// Clock reports the current playback position
type Clock interface {
	Now() time.Duration
}

// Sink accepts audio to be played starting at a playback time. It returns
// the start it actually used, which may be later than at when the device has
// moved on or audio is still queued there.
type Sink interface {
	Enqueue(at time.Duration, samples []float32, sampleRate int) (time.Duration, error)
}

// Scheduler places each chunk immediately after the previous one.
// A cursor that has fallen behind the clock is clamped to now, so late
// audio plays at once instead of piling up. The cursor follows the start
// the sink reports, never the requested one.
type Scheduler struct {
	clock Clock
	sink  Sink

	mu        sync.Mutex
	nextStart time.Duration
	stats     SchedulerStats
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Scheduled int64
	Clamped   int64
	Queued    time.Duration // audio scheduled beyond the clock
}

// NewScheduler creates a scheduler with its cursor at the current clock
func NewScheduler(clock Clock, sink Sink) *Scheduler {
	return &Scheduler{
		clock:     clock,
		sink:      sink,
		nextStart: clock.Now(),
	}
}

// Schedule enqueues samples and advances the cursor by their duration.
// It returns the start time chosen for the chunk.
func (s *Scheduler) Schedule(samples []float32, sampleRate int) (time.Duration, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	requested := s.nextStart
	if requested < now {
		log.Debug().Dur("late_by", now-requested).Msg("Playback cursor behind clock, starting now")
		requested = now
		s.stats.Clamped++
	}

	start, err := s.sink.Enqueue(requested, samples, sampleRate)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue audio: %w", err)
	}
	if start != requested {
		log.Debug().Dur("requested", requested).Dur("start", start).Msg("Sink moved chunk start")
	}

	s.nextStart = start + audio.Duration(len(samples), sampleRate)
	s.stats.Scheduled++
	return start, nil
}

// SchedulePCM16 decodes 16-bit PCM and schedules it
func (s *Scheduler) SchedulePCM16(data []byte, sampleRate int) (time.Duration, error) {
	return s.Schedule(decode.PCM16(data), sampleRate)
}

// Reset moves the cursor to the current clock. Audio still queued in the
// sink is respected by the sink on the next Schedule.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStart = s.clock.Now()
}

// NextStart returns the cursor
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	if ahead := s.nextStart - s.clock.Now(); ahead > 0 {
		stats.Queued = ahead
	}
	return stats
}
