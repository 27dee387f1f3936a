// ABOUTME: Realtime translation session
// ABOUTME: Connects capture, the service socket and playback scheduling with explicit Open/Close
package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/Sendspin/livetranslate-go/pkg/audio/capture"
	"github.com/Sendspin/livetranslate-go/pkg/audio/decode"
	"github.com/Sendspin/livetranslate-go/pkg/audio/resample"
	"github.com/Sendspin/livetranslate-go/pkg/player"
	"github.com/Sendspin/livetranslate-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrDeviceUnavailable is returned when capture cannot start
	ErrDeviceUnavailable = capture.ErrDeviceUnavailable

	// ErrConnectionRejected means the socket did not survive the handshake grace period
	ErrConnectionRejected = errors.New("connection rejected")

	// ErrQuotaExceeded means the service closed the socket with the quota close code
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrNetwork covers all other abnormal connection ends
	ErrNetwork = errors.New("network error")

	// ErrAlreadyOpen is returned by Open while a session is running
	ErrAlreadyOpen = errors.New("session already open")
)

// Config holds session parameters
type Config struct {
	Model          string
	Voice          string
	TargetLanguage string

	// Window is the capture chunk length (default 5s)
	Window time.Duration
	// CaptureRate is the rate of audio sent to the service (default 16000)
	CaptureRate int
	// PlaybackRate is assumed for audio parts without a rate parameter (default 24000)
	PlaybackRate int
	// Grace is how long the socket must stay open before going online (default 1s)
	Grace time.Duration
	// ChunkQueue is the capacity of the capture handoff channel (default 4)
	ChunkQueue int
}

func (c *Config) applyDefaults() {
	if c.Window <= 0 {
		c.Window = audio.DefaultWindow
	}
	if c.CaptureRate <= 0 {
		c.CaptureRate = audio.CaptureSampleRate
	}
	if c.PlaybackRate <= 0 {
		c.PlaybackRate = audio.PlaybackSampleRate
	}
	if c.Grace <= 0 {
		c.Grace = time.Second
	}
	if c.ChunkQueue <= 0 {
		c.ChunkQueue = 4
	}
}

// Dialer opens a connected protocol client
type Dialer func(ctx context.Context) (*protocol.Client, error)

// NewDialer returns a Dialer for the given client configuration
func NewDialer(cfg protocol.Config) Dialer {
	return func(ctx context.Context) (*protocol.Client, error) {
		client := protocol.NewClient(cfg)
		if err := client.Dial(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Playback is where received audio is scheduled
type Playback interface {
	player.Clock
	player.Sink
}

// Stats tracks session counters across opens
type Stats struct {
	ChunksSent     int64
	ChunksSkipped  int64 // captured while not online
	ChunksDropped  int64 // handoff channel full
	PartsReceived  int64
	SamplesPlayed  int64
	SendErrors     int64
	SchedulerStats player.SchedulerStats
}

// Session runs one connection at a time. Open starts capture and the socket;
// the session goes online after the grace period and ends on Close, on a
// remote close or on an error. Every end tears down capture and the socket.
type Session struct {
	config    Config
	dial      Dialer
	input     capture.Input
	scheduler *player.Scheduler

	events chan Event

	mu     sync.Mutex
	state  State
	id     string
	proc   *capture.ChunkProcessor
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	stats  Stats
}

// NewSession creates an idle session
func NewSession(config Config, dial Dialer, input capture.Input, playback Playback) *Session {
	config.applyDefaults()
	return &Session{
		config:    config,
		dial:      dial,
		input:     input,
		scheduler: player.NewScheduler(playback, playback),
		events:    make(chan Event, 128),
	}
}

// Events returns the event channel. Events are dropped when it is full.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the id of the current or most recent connection
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Err returns the failure that ended the most recent connection, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// InputLevel returns the peak level of the latest captured block
func (s *Session) InputLevel() float64 {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return 0
	}
	return proc.Level()
}

// Stats returns session counters
func (s *Session) Stats() Stats {
	s.mu.Lock()
	stats := s.stats
	proc := s.proc
	s.mu.Unlock()
	if proc != nil {
		stats.ChunksDropped += proc.Stats().Dropped
	}
	stats.SchedulerStats = s.scheduler.Stats()
	return stats
}

// Done is closed when the current connection has fully torn down.
// It returns nil if the session was never opened.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Open starts capture, dials the service and sends setup. It returns once
// the socket is open; the session goes online asynchronously after the grace
// period. ctx bounds the whole connection. A Close while connecting aborts
// the dial and releases capture.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Connecting || s.state == Online {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	from := s.state
	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.id = id
	s.err = nil
	s.state = Connecting
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	logger := log.With().Str("session", id).Logger()
	s.emit(StateEvent{From: from, To: Connecting})
	s.status(StatusConnecting, nil)

	// abort ends an Open that never reached the run loop
	abort := func(proc *capture.ChunkProcessor, kind StatusKind, err error) error {
		if proc != nil {
			s.stopCapture(proc, &logger)
		}
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		defer close(done)

		if runCtx.Err() != nil {
			logger.Info().Msg("Session closed while connecting")
			s.status(StatusStopped, nil)
			s.setState(Idle)
			return runCtx.Err()
		}
		return s.fail(kind, err, &logger)
	}

	chunks := make(chan []float32, s.config.ChunkQueue)
	proc := capture.NewChunkProcessor(audio.Capacity(s.config.CaptureRate, s.config.Window), chunks)

	if err := s.input.Start(proc); err != nil {
		return abort(nil, StatusDeviceUnavailable, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err))
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()

	client, err := s.dial(runCtx)
	if err != nil {
		if errors.Is(err, protocol.ErrUpgradeRejected) {
			return abort(proc, StatusRejected, fmt.Errorf("%w: %v", ErrConnectionRejected, err))
		}
		return abort(proc, StatusNetworkError, fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	if runCtx.Err() != nil {
		client.Close()
		return abort(proc, StatusStopped, nil)
	}

	setup := protocol.NewSetup(s.config.Model, s.config.Voice, s.config.TargetLanguage)
	if err := client.SendSetup(setup); err != nil {
		client.Close()
		return abort(proc, StatusNetworkError, fmt.Errorf("%w: %v", ErrNetwork, err))
	}

	logger.Info().
		Str("model", s.config.Model).
		Str("voice", s.config.Voice).
		Str("language", s.config.TargetLanguage).
		Str("input", s.input.Name()).
		Msg("Session connecting")

	go s.run(runCtx, client, proc, chunks, done, logger)
	return nil
}

// Close stops the session and waits for teardown. It is a no-op when idle.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}

// run is the control loop for one connection
func (s *Session) run(ctx context.Context, client *protocol.Client, proc *capture.ChunkProcessor,
	chunks <-chan []float32, done chan struct{}, logger zerolog.Logger) {
	defer close(done)

	grace := time.NewTimer(s.config.Grace)
	defer grace.Stop()

	online := false
	conv := newRateConverter(s.config.PlaybackRate)
	audioParts := client.Audio
	turns := client.Turns

	end := func(kind StatusKind, err error) {
		client.Close()
		s.stopCapture(proc, &logger)
		s.mu.Lock()
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if err != nil {
			s.fail(kind, err, &logger)
			return
		}
		s.status(kind, nil)
		s.setState(Idle)
		logger.Info().Str("status", kind.Message()).Msg("Session ended")
	}

	for {
		select {
		case <-ctx.Done():
			end(StatusStopped, nil)
			return

		case <-grace.C:
			if !client.IsConnected() {
				continue
			}
			online = true
			s.scheduler.Reset()
			s.setState(Online)
			s.status(StatusOnline, nil)
			logger.Info().Msg("Session online")

		case <-client.SetupComplete:
			logger.Debug().Msg("Service acknowledged setup")

		case chunk := <-chunks:
			if !online {
				s.count(func(st *Stats) { st.ChunksSkipped++ })
				continue
			}
			if err := client.SendAudio(chunk); err != nil {
				// The reader reports the close that caused this
				logger.Warn().Err(err).Msg("Failed to send audio")
				s.count(func(st *Stats) { st.SendErrors++ })
				continue
			}
			var total int64
			s.count(func(st *Stats) { st.ChunksSent++; total = st.ChunksSent })
			s.emit(AudioSentEvent{Samples: len(chunk), Total: total})

		case part, ok := <-audioParts:
			if !ok {
				audioParts = nil
				continue
			}
			s.playPart(part, conv, &logger)

		case turn, ok := <-turns:
			if !ok {
				turns = nil
				continue
			}
			s.emit(TurnEvent{Complete: turn.Complete, Interrupted: turn.Interrupted})

		case <-client.Done():
			// Drain audio that arrived before the close
			if audioParts != nil {
				for part := range audioParts {
					s.playPart(part, conv, &logger)
				}
			}
			info := client.CloseInfo()
			kind, err := closeStatus(info, online)
			logger.Info().Int("code", info.Code).Str("reason", info.Reason).Bool("online", online).Msg("Connection closed by peer")
			end(kind, err)
			return
		}
	}
}

// closeStatus maps a peer close to the user-facing status
func closeStatus(info protocol.CloseInfo, online bool) (StatusKind, error) {
	switch protocol.Classify(info) {
	case protocol.CloseQuota:
		return StatusQuotaExceeded, fmt.Errorf("%w: %s", ErrQuotaExceeded, info.Reason)
	case protocol.CloseNetwork:
		if !online {
			return StatusRejected, fmt.Errorf("%w: close code %d", ErrConnectionRejected, info.Code)
		}
		if info.Err != nil {
			return StatusNetworkError, fmt.Errorf("%w: %v", ErrNetwork, info.Err)
		}
		return StatusNetworkError, fmt.Errorf("%w: close code %d %s", ErrNetwork, info.Code, info.Reason)
	default:
		if !online {
			return StatusRejected, fmt.Errorf("%w: closed during handshake", ErrConnectionRejected)
		}
		return StatusDisconnected, nil
	}
}

func (s *Session) playPart(part protocol.AudioPart, conv *rateConverter, logger *zerolog.Logger) {
	rate := part.SampleRate
	if rate <= 0 {
		rate = s.config.PlaybackRate
	}
	samples := conv.convert(decode.PCM16(part.PCM), rate)

	before := s.scheduler.Stats().Clamped
	start, err := s.scheduler.Schedule(samples, s.config.PlaybackRate)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to schedule audio")
		return
	}

	s.count(func(st *Stats) {
		st.PartsReceived++
		st.SamplesPlayed += int64(len(samples))
	})
	s.emit(AudioReceivedEvent{
		Samples:    len(part.PCM) / 2,
		SampleRate: rate,
		Start:      start,
		Clamped:    s.scheduler.Stats().Clamped > before,
	})
}

// rateConverter brings received audio to the playback rate. It keeps one
// resampler per source rate so consecutive parts join without clicks.
type rateConverter struct {
	target     int
	resamplers map[int]*resample.Resampler
}

func newRateConverter(target int) *rateConverter {
	return &rateConverter{target: target, resamplers: make(map[int]*resample.Resampler)}
}

func (c *rateConverter) convert(samples []float32, rate int) []float32 {
	if rate == c.target {
		return samples
	}
	r, ok := c.resamplers[rate]
	if !ok {
		r = resample.New(rate, c.target)
		c.resamplers[rate] = r
	}
	return r.Resample(samples)
}

// stopCapture stops the producer and discards the partial window
func (s *Session) stopCapture(proc *capture.ChunkProcessor, logger *zerolog.Logger) {
	proc.Stop()
	if err := s.input.Stop(); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop capture")
	}
	dropped := proc.Stats().Dropped

	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
	}
	s.stats.ChunksDropped += dropped
	s.mu.Unlock()
}

// fail records err, reports kind and moves to Error
func (s *Session) fail(kind StatusKind, err error, logger *zerolog.Logger) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	logger.Error().Err(err).Str("status", kind.Message()).Msg("Session failed")
	s.status(kind, err)
	s.setState(Error)
	return err
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from != to {
		s.emit(StateEvent{From: from, To: to})
	}
}

func (s *Session) status(kind StatusKind, err error) {
	s.emit(StatusEvent{Kind: kind, Message: kind.Message(), Err: err})
}

func (s *Session) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// emit never blocks the control loop
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Debug().Type("event", ev).Msg("Event channel full, dropping event")
	}
}
