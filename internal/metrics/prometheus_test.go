// ABOUTME: Tests for session metrics
// ABOUTME: Feeds events and inspects the gathered metric families
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/translate"
)

// value returns the value of a counter or gauge family, optionally by label
func value(t *testing.T, m *Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if label != "" {
				match := false
				for _, lp := range metric.GetLabel() {
					if lp.GetValue() == label {
						match = true
					}
				}
				if !match {
					continue
				}
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}

func TestObserveEvents(t *testing.T) {
	m := New()

	events := []translate.Event{
		translate.StateEvent{From: translate.Idle, To: translate.Connecting},
		translate.StateEvent{From: translate.Connecting, To: translate.Online},
		translate.AudioSentEvent{Samples: 80000, Total: 1},
		translate.AudioSentEvent{Samples: 80000, Total: 2},
		translate.AudioReceivedEvent{Samples: 24000, SampleRate: 24000},
		translate.AudioReceivedEvent{Samples: 12000, SampleRate: 24000, Clamped: true},
		translate.TurnEvent{Complete: true},
		translate.StatusEvent{Kind: translate.StatusQuotaExceeded},
		translate.StateEvent{From: translate.Online, To: translate.Error},
	}
	for _, ev := range events {
		m.Observe(ev, 16000)
	}

	tests := []struct {
		name  string
		label string
		want  float64
	}{
		{"livetranslate_sessions_opened_total", "", 1},
		{"livetranslate_chunks_sent_total", "", 2},
		{"livetranslate_audio_sent_seconds_total", "", 10},
		{"livetranslate_audio_parts_received_total", "", 2},
		{"livetranslate_audio_received_seconds_total", "", 1.5},
		{"livetranslate_playback_late_total", "", 1},
		{"livetranslate_turns_total", "complete", 1},
		{"livetranslate_session_ends_total", "quota_exceeded", 1},
		{"livetranslate_session_state", "", float64(translate.Error)},
	}
	for _, tt := range tests {
		if got := value(t, m, tt.name, tt.label); got != tt.want {
			t.Errorf("%s{%s} = %v, want %v", tt.name, tt.label, got, tt.want)
		}
	}
}

func TestStatusWithoutEndIsIgnored(t *testing.T) {
	m := New()
	m.Observe(translate.StatusEvent{Kind: translate.StatusOnline}, 16000)

	if got := value(t, m, "livetranslate_session_ends_total", ""); got != 0 {
		t.Errorf("expected no session end, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.Observe(translate.AudioSentEvent{Samples: 16000}, 16000)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "livetranslate_chunks_sent_total 1") {
		t.Errorf("expected chunk counter in output, got:\n%s", body)
	}
}

func TestObserveStats(t *testing.T) {
	m := New()
	m.ObserveStats(translate.Stats{ChunksSkipped: 3, ChunksDropped: 1}, 1500*time.Millisecond)

	tests := []struct {
		name string
		want float64
	}{
		{"livetranslate_chunks_skipped", 3},
		{"livetranslate_chunks_dropped", 1},
		{"livetranslate_playback_queued_seconds", 1.5},
	}
	for _, tt := range tests {
		if got := value(t, m, tt.name, ""); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}
