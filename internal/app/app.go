// ABOUTME: Translation client orchestration
// ABOUTME: Wires capture, session, playout, metrics and the TUI together
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sendspin/livetranslate-go/internal/config"
	"github.com/Sendspin/livetranslate-go/internal/discovery"
	"github.com/Sendspin/livetranslate-go/internal/metrics"
	"github.com/Sendspin/livetranslate-go/internal/ui"
	"github.com/Sendspin/livetranslate-go/pkg/audio/capture"
	"github.com/Sendspin/livetranslate-go/pkg/audio/output"
	"github.com/Sendspin/livetranslate-go/pkg/protocol"
	"github.com/Sendspin/livetranslate-go/pkg/translate"
	"github.com/rs/zerolog/log"
)

const (
	// refreshInterval paces meter and counter updates to the TUI
	refreshInterval = 50 * time.Millisecond

	// discoveryTimeout bounds the mDNS lookup for --local
	discoveryTimeout = 10 * time.Second

	toneFrequency = 440
)

// Options overrides the components New would otherwise build from config
type Options struct {
	Input  capture.Input
	Output output.Output
}

// App owns one translation session and its surroundings
type App struct {
	cfg      *config.Config
	input    capture.Input
	timeline *output.Timeline
	out      output.Output
	metrics  *metrics.Metrics

	session  *translate.Session
	tui      *ui.TUI
	controls *ui.Controls
}

// New creates the app from a validated configuration
func New(cfg *config.Config, opts Options) (*App, error) {
	input := opts.Input
	if input == nil {
		var err error
		input, err = NewInput(cfg)
		if err != nil {
			return nil, err
		}
	}

	out := opts.Output
	if out == nil {
		out = output.New(cfg.Output, cfg.Speaker)
	}

	timeline := output.NewTimeline(cfg.PlaybackRate)
	timeline.SetVolume(cfg.Volume)

	return &App{
		cfg:      cfg,
		input:    input,
		timeline: timeline,
		out:      out,
		metrics:  metrics.New(),
	}, nil
}

// NewInput builds the capture input named by cfg.Input
func NewInput(cfg *config.Config) (capture.Input, error) {
	pump := capture.PumpConfig{TargetRate: cfg.CaptureRate, Realtime: true}

	switch cfg.Input {
	case "", "mic":
		return capture.NewDeviceInput(cfg.Mic, cfg.CaptureRate), nil
	case "tone":
		return capture.NewSourceInput(fmt.Sprintf("tone %d Hz", toneFrequency), func() (capture.Source, error) {
			return capture.NewToneSource(toneFrequency, cfg.CaptureRate), nil
		}, pump), nil
	}

	path := cfg.Input
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}
	return capture.NewSourceInput(filepath.Base(path), func() (capture.Source, error) {
		return capture.NewFileSource(path)
	}, pump), nil
}

// Metrics returns the app's metric set
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Session returns the session once Run has created it
func (a *App) Session() *translate.Session {
	return a.session
}

// Run resolves the endpoint, opens playback and drives the session until ctx
// is done or the user quits. Without a TUI the session starts immediately and
// Run returns when it ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.cfg.Local {
		if err := a.discover(ctx); err != nil {
			return err
		}
	}
	if err := a.cfg.ValidateCredentials(); err != nil {
		return err
	}

	a.session = translate.NewSession(translate.Config{
		Model:          a.cfg.Model,
		Voice:          a.cfg.Voice,
		TargetLanguage: a.cfg.TargetLanguage,
		Window:         a.cfg.Window(),
		CaptureRate:    a.cfg.CaptureRate,
		PlaybackRate:   a.cfg.PlaybackRate,
		Grace:          a.cfg.Grace(),
	}, translate.NewDialer(protocol.Config{
		Endpoint: a.cfg.Endpoint,
		APIKey:   a.cfg.APIKey,
	}), a.input, a.timeline)

	if err := a.out.Open(a.timeline); err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer func() {
		if err := a.out.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close audio output")
		}
	}()

	if a.cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	var tuiDone chan error
	if a.cfg.NoTUI {
		if err := a.session.Open(ctx); err != nil {
			return err
		}
	} else {
		a.controls = ui.NewControls()
		a.tui = ui.New(ui.Info{
			Model:    a.cfg.Model,
			Voice:    a.cfg.Voice,
			Language: a.cfg.TargetLanguage,
			Mic:      a.input.Name(),
			Speaker:  a.speakerName(),
			Volume:   a.cfg.Volume,
		}, a.controls)

		tuiDone = make(chan error, 1)
		go func() {
			tuiDone <- a.tui.Run()
		}()
		defer a.tui.Stop()
	}
	defer a.session.Close()

	return a.loop(ctx, tuiDone)
}

// discover replaces the endpoint with the first mock server found via mDNS
func (a *App) discover(ctx context.Context) error {
	log.Info().Str("service", discovery.ServiceType).Msg("Looking for a local server")

	lookupCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	server, err := discovery.Lookup(lookupCtx)
	if err != nil {
		return err
	}

	a.cfg.Endpoint = server.Endpoint()
	log.Info().Str("name", server.Name).Str("endpoint", a.cfg.Endpoint).Msg("Discovered server")
	return nil
}

func (a *App) speakerName() string {
	if a.cfg.Speaker != "" {
		return a.cfg.Speaker
	}
	return a.cfg.Output + " default"
}

// loop handles session events, user controls and the refresh ticker
func (a *App) loop(ctx context.Context, tuiDone <-chan error) error {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	var (
		toggle <-chan struct{}
		quit   <-chan struct{}
		volume <-chan ui.VolumeChangeMsg
	)
	if a.controls != nil {
		toggle = a.controls.Toggle
		quit = a.controls.QuitReq
		volume = a.controls.Volume
	}

	events := a.session.Events()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown requested")
			return nil

		case err := <-tuiDone:
			return err

		case <-quit:
			log.Info().Msg("Quit requested from TUI")
			return nil

		case <-toggle:
			a.toggle(ctx)

		case v := <-volume:
			log.Debug().Int("volume", v.Volume).Bool("muted", v.Muted).Msg("Volume change")
			a.timeline.SetVolume(v.Volume)
			a.timeline.SetMuted(v.Muted)

		case ev := <-events:
			a.metrics.Observe(ev, a.cfg.CaptureRate)
			if ended := a.handleEvent(ev); ended && a.tui == nil {
				return a.session.Err()
			}

		case <-ticker.C:
			a.refresh()
		}
	}
}

// toggle starts an idle session or stops a running one
func (a *App) toggle(ctx context.Context) {
	switch a.session.State() {
	case translate.Idle, translate.Error:
		go func() {
			if err := a.session.Open(ctx); err != nil {
				log.Warn().Err(err).Msg("Session did not open")
			}
		}()
	default:
		go a.session.Close()
	}
}

// handleEvent logs an event and forwards it to the TUI. It reports whether
// the event ended the session.
func (a *App) handleEvent(ev translate.Event) bool {
	switch e := ev.(type) {
	case translate.StateEvent:
		log.Debug().Stringer("from", e.From).Stringer("to", e.To).Msg("Session state")
		a.send(ui.StatusMsg{State: e.To.String(), SessionID: a.session.ID()})
		return e.From != translate.Idle && e.From != translate.Error &&
			(e.To == translate.Idle || e.To == translate.Error)

	case translate.StatusEvent:
		entry := log.Info()
		if e.Err != nil {
			entry = log.Warn().Err(e.Err)
		}
		entry.Str("status", e.Message).Msg("Session status")
		a.send(ui.StatusMsg{Status: e.Message, Warning: e.Kind.Warning()})

	case translate.AudioSentEvent:
		log.Debug().Int("samples", e.Samples).Int64("total", e.Total).Msg("Chunk sent")

	case translate.AudioReceivedEvent:
		log.Debug().
			Int("samples", e.Samples).
			Int("rate", e.SampleRate).
			Dur("start", e.Start).
			Bool("clamped", e.Clamped).
			Msg("Audio scheduled")

	case translate.TurnEvent:
		log.Debug().Bool("complete", e.Complete).Bool("interrupted", e.Interrupted).Msg("Turn")
	}
	return false
}

// refresh updates the stat gauges and pushes meters and counters to the TUI
func (a *App) refresh() {
	stats := a.session.Stats()
	queued := a.timeline.Buffered()
	a.metrics.ObserveStats(stats, queued)

	if a.tui == nil {
		return
	}

	a.tui.Send(ui.LevelsMsg{
		Input:    a.session.InputLevel(),
		Output:   a.timeline.Level(),
		QueuedMs: queued.Milliseconds(),
	})
	a.tui.Send(ui.StatusMsg{
		Sent:     stats.ChunksSent,
		Received: stats.PartsReceived,
		Skipped:  stats.ChunksSkipped,
		Dropped:  stats.ChunksDropped,
		Clamped:  stats.SchedulerStats.Clamped,
	})
}

func (a *App) send(msg ui.StatusMsg) {
	if a.tui != nil {
		a.tui.Send(msg)
	}
}
