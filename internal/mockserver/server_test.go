// ABOUTME: Tests for the mock translation server
// ABOUTME: Drives the server with the protocol client over httptest
package mockserver

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/protocol"
	"github.com/gorilla/websocket"
)

func startMock(t *testing.T, config Config) (*Server, string) {
	t.Helper()
	srv := NewServer(config)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + srv.Path()
}

func connect(t *testing.T, endpoint, key string) *protocol.Client {
	t.Helper()
	c := protocol.NewClient(protocol.Config{Endpoint: endpoint, APIKey: key})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Dial(ctx); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewServerDefaults(t *testing.T) {
	srv := NewServer(Config{})
	if srv.config.Port != 8765 {
		t.Errorf("expected default port 8765, got %d", srv.config.Port)
	}
	if srv.Path() != DefaultPath {
		t.Errorf("expected default path, got %s", srv.Path())
	}
	if srv.config.OutputRate != 24000 {
		t.Errorf("expected 24000 Hz output, got %d", srv.config.OutputRate)
	}
}

func TestSetupAndEcho(t *testing.T) {
	srv, endpoint := startMock(t, Config{})
	c := connect(t, endpoint, "")

	if err := c.SendSetup(protocol.NewSetup("models/mock", "Puck", "English")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.SetupComplete:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for setupComplete")
	}

	if err := c.SendAudio(make([]float32, 1600)); err != nil {
		t.Fatal(err)
	}

	select {
	case part := <-c.Audio:
		if part.SampleRate != 24000 {
			t.Errorf("expected 24000 Hz, got %d", part.SampleRate)
		}
		samples := len(part.PCM) / 2
		if math.Abs(float64(samples-2400)) > 3 {
			t.Errorf("expected ~2400 samples, got %d", samples)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for audio")
	}

	select {
	case turn := <-c.Turns:
		if !turn.Complete {
			t.Error("expected turn complete")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for turn")
	}

	stats := srv.Stats()
	if stats.Connections != 1 || stats.ChunksReceived != 1 || stats.TurnsSent != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestQuotaClose(t *testing.T) {
	_, endpoint := startMock(t, Config{QuotaAfter: 2})
	c := connect(t, endpoint, "")

	c.SendSetup(protocol.NewSetup("m", "v", "English"))
	for i := 0; i < 2; i++ {
		if err := c.SendAudio(make([]float32, 160)); err != nil {
			t.Fatal(err)
		}
	}

	// Drain echoed audio so the reader can reach the close
	timeout := time.After(5 * time.Second)
	for {
		select {
		case <-c.Audio:
			continue
		case <-c.Done():
		case <-timeout:
			t.Fatal("timeout waiting for quota close")
		}
		break
	}

	info := c.CloseInfo()
	if info.Code != protocol.CloseQuotaExceeded {
		t.Errorf("expected close code %d, got %d", protocol.CloseQuotaExceeded, info.Code)
	}
	if protocol.Classify(info) != protocol.CloseQuota {
		t.Errorf("expected quota classification, got %s", protocol.Classify(info))
	}
}

func TestRejectsMissingSetup(t *testing.T) {
	_, endpoint := startMock(t, Config{})
	c := connect(t, endpoint, "")

	if err := c.SendAudio(make([]float32, 16)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for close")
	}
	if code := c.CloseInfo().Code; code != websocket.ClosePolicyViolation {
		t.Errorf("expected policy violation, got %d", code)
	}
}

func TestRejectSetup(t *testing.T) {
	_, endpoint := startMock(t, Config{RejectSetup: true})
	c := connect(t, endpoint, "")
	c.SendSetup(protocol.NewSetup("m", "v", "English"))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for close")
	}
	if protocol.Classify(c.CloseInfo()) != protocol.CloseNetwork {
		t.Errorf("expected rejected setup to classify as network, got %s", protocol.Classify(c.CloseInfo()))
	}
}

func TestAPIKeyRequired(t *testing.T) {
	_, endpoint := startMock(t, Config{APIKey: "secret"})

	c := protocol.NewClient(protocol.Config{Endpoint: endpoint, APIKey: "wrong"})
	err := c.Dial(context.Background())
	if !errors.Is(err, protocol.ErrUpgradeRejected) {
		t.Errorf("expected ErrUpgradeRejected, got %v", err)
	}

	connect(t, endpoint, "secret")
}

func TestStopClosesConnections(t *testing.T) {
	srv, endpoint := startMock(t, Config{})
	c := connect(t, endpoint, "")
	c.SendSetup(protocol.NewSetup("m", "v", "English"))
	<-c.SetupComplete

	srv.Stop()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for close after stop")
	}
	if code := c.CloseInfo().Code; code != websocket.CloseGoingAway {
		t.Errorf("expected going away, got %d", code)
	}
}
