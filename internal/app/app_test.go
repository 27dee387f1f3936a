// ABOUTME: Tests for app orchestration
// ABOUTME: Runs headless sessions against the mock server with a null audio output
package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sendspin/livetranslate-go/internal/config"
	"github.com/Sendspin/livetranslate-go/internal/mockserver"
	"github.com/Sendspin/livetranslate-go/pkg/audio/capture"
	"github.com/Sendspin/livetranslate-go/pkg/audio/output"
	"github.com/Sendspin/livetranslate-go/pkg/translate"
)

type nullOutput struct {
	opened atomic.Bool
	closed atomic.Bool
}

func (o *nullOutput) Open(*output.Timeline) error {
	o.opened.Store(true)
	return nil
}

func (o *nullOutput) Close() error {
	o.closed.Store(true)
	return nil
}

func startMock(t *testing.T, config mockserver.Config) string {
	t.Helper()
	srv := mockserver.NewServer(config)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + srv.Path()
}

func headlessConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Endpoint = endpoint
	cfg.Input = "tone"
	cfg.NoTUI = true
	cfg.WindowSeconds = 0.1
	cfg.GraceMS = 50
	return cfg
}

func TestNewInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "speech.mp3")
	if err := os.WriteFile(file, []byte("not really mp3"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    string
		mic      string
		wantName string
		wantErr  bool
	}{
		{"default mic", "mic", "", "default", false},
		{"named mic", "mic", "USB", "USB", false},
		{"empty means mic", "", "", "default", false},
		{"tone", "tone", "", "tone 440 Hz", false},
		{"file", file, "", "speech.mp3", false},
		{"missing file", filepath.Join(dir, "missing.flac"), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Input = tt.input
			cfg.Mic = tt.mic

			input, err := NewInput(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInput() error = %v", err)
			}
			if input.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", input.Name(), tt.wantName)
			}
		})
	}
}

func TestNewInputKinds(t *testing.T) {
	cfg := config.Default()
	input, err := NewInput(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := input.(*capture.DeviceInput); !ok {
		t.Errorf("expected *capture.DeviceInput, got %T", input)
	}

	cfg.Input = "tone"
	input, err = NewInput(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := input.(*capture.SourceInput); !ok {
		t.Errorf("expected *capture.SourceInput, got %T", input)
	}
}

func TestRunHeadlessQuota(t *testing.T) {
	endpoint := startMock(t, mockserver.Config{QuotaAfter: 2})
	out := &nullOutput{}

	a, err := New(headlessConfig(endpoint), Options{Output: out})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = a.Run(ctx)
	if !errors.Is(err, translate.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	stats := a.Session().Stats()
	if stats.ChunksSent < 2 {
		t.Errorf("expected at least 2 chunks sent, got %d", stats.ChunksSent)
	}
	if a.Session().State() != translate.Error {
		t.Errorf("expected error state, got %v", a.Session().State())
	}
	if !out.opened.Load() || !out.closed.Load() {
		t.Errorf("expected output opened and closed, got opened=%v closed=%v", out.opened.Load(), out.closed.Load())
	}
}

func TestRunHeadlessCancel(t *testing.T) {
	endpoint := startMock(t, mockserver.Config{})

	a, err := New(headlessConfig(endpoint), Options{Output: &nullOutput{}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if state := a.Session().State(); state != translate.Idle {
		t.Errorf("expected idle after shutdown, got %v", state)
	}
}

func TestRunRejectedKey(t *testing.T) {
	endpoint := startMock(t, mockserver.Config{APIKey: "secret"})

	cfg := headlessConfig(endpoint)
	cfg.APIKey = "wrong"
	a, err := New(cfg, Options{Output: &nullOutput{}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Run(ctx); !errors.Is(err, translate.ErrConnectionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestRunMissingAPIKey(t *testing.T) {
	cfg := headlessConfig("wss://generativelanguage.googleapis.com/ws")
	out := &nullOutput{}
	a, err := New(cfg, Options{Output: out})
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Run(context.Background()); !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if out.opened.Load() {
		t.Error("output should not open without credentials")
	}
}

func TestHandleEventEnds(t *testing.T) {
	a := &App{cfg: config.Default()}
	a.session = translate.NewSession(translate.Config{}, nil, nil, output.NewTimeline(24000))

	tests := []struct {
		name string
		ev   translate.Event
		want bool
	}{
		{"connecting", translate.StateEvent{From: translate.Idle, To: translate.Connecting}, false},
		{"online", translate.StateEvent{From: translate.Connecting, To: translate.Online}, false},
		{"stopped", translate.StateEvent{From: translate.Online, To: translate.Idle}, true},
		{"failed", translate.StateEvent{From: translate.Connecting, To: translate.Error}, true},
		{"status", translate.StatusEvent{Kind: translate.StatusOnline, Message: "Online"}, false},
		{"turn", translate.TurnEvent{Complete: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.handleEvent(tt.ev); got != tt.want {
				t.Errorf("handleEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}
