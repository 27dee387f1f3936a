// ABOUTME: Prometheus metrics for translation sessions
// ABOUTME: Counts chunks, received audio and session outcomes and serves /metrics
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/Sendspin/livetranslate-go/pkg/translate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics contains all Prometheus metrics for the client
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsOpened prometheus.Counter
	SessionEnds    *prometheus.CounterVec
	SessionState   prometheus.Gauge

	// Capture metrics
	ChunksSent    prometheus.Counter
	SecondsSent   prometheus.Counter
	ChunksSkipped prometheus.Gauge
	ChunksDropped prometheus.Gauge

	// Playback metrics
	PartsReceived   prometheus.Counter
	SecondsReceived prometheus.Counter
	LateClamps      prometheus.Counter
	Turns           *prometheus.CounterVec
	QueuedSeconds   prometheus.Gauge
}

// New creates a registry with Go runtime collectors and registers all metrics on it
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_sessions_opened_total",
			Help: "Total number of sessions opened",
		}),
		SessionEnds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livetranslate_session_ends_total",
			Help: "Total number of session ends by reason",
		}, []string{"reason"}),
		SessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livetranslate_session_state",
			Help: "Current session state (0 idle, 1 connecting, 2 online, 3 error)",
		}),

		ChunksSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_chunks_sent_total",
			Help: "Total number of captured chunks sent to the service",
		}),
		SecondsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_audio_sent_seconds_total",
			Help: "Total seconds of captured audio sent",
		}),
		ChunksSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livetranslate_chunks_skipped",
			Help: "Chunks captured while the session was not online",
		}),
		ChunksDropped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livetranslate_chunks_dropped",
			Help: "Chunks dropped because the handoff queue was full",
		}),

		PartsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_audio_parts_received_total",
			Help: "Total number of audio parts received and scheduled",
		}),
		SecondsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_audio_received_seconds_total",
			Help: "Total seconds of synthesized audio scheduled",
		}),
		LateClamps: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetranslate_playback_late_total",
			Help: "Total number of parts that arrived after the playback cursor",
		}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livetranslate_turns_total",
			Help: "Total number of model turn signals",
		}, []string{"kind"}),
		QueuedSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livetranslate_playback_queued_seconds",
			Help: "Scheduled audio not yet played",
		}),
	}
}

// Registry returns the registry holding all metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a session event
func (m *Metrics) Observe(ev translate.Event, captureRate int) {
	switch e := ev.(type) {
	case translate.StateEvent:
		m.SessionState.Set(float64(e.To))
		if e.To == translate.Connecting {
			m.SessionsOpened.Inc()
		}
	case translate.StatusEvent:
		if reason := endReason(e.Kind); reason != "" {
			m.SessionEnds.WithLabelValues(reason).Inc()
		}
	case translate.AudioSentEvent:
		m.ChunksSent.Inc()
		m.SecondsSent.Add(audio.Duration(e.Samples, captureRate).Seconds())
	case translate.AudioReceivedEvent:
		m.PartsReceived.Inc()
		m.SecondsReceived.Add(audio.Duration(e.Samples, e.SampleRate).Seconds())
		if e.Clamped {
			m.LateClamps.Inc()
		}
	case translate.TurnEvent:
		if e.Complete {
			m.Turns.WithLabelValues("complete").Inc()
		}
		if e.Interrupted {
			m.Turns.WithLabelValues("interrupted").Inc()
		}
	}
}

// ObserveStats updates the gauges that mirror session counters
func (m *Metrics) ObserveStats(stats translate.Stats, queued time.Duration) {
	m.ChunksSkipped.Set(float64(stats.ChunksSkipped))
	m.ChunksDropped.Set(float64(stats.ChunksDropped))
	m.QueuedSeconds.Set(queued.Seconds())
}

// endReason returns the label for statuses that end a session
func endReason(kind translate.StatusKind) string {
	switch kind {
	case translate.StatusStopped:
		return "stopped"
	case translate.StatusDisconnected:
		return "disconnected"
	case translate.StatusDeviceUnavailable:
		return "device_unavailable"
	case translate.StatusRejected:
		return "rejected"
	case translate.StatusQuotaExceeded:
		return "quota_exceeded"
	case translate.StatusNetworkError:
		return "network"
	default:
		return ""
	}
}

// Handler returns the /metrics handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
