// ABOUTME: Tests for the WebSocket client
// ABOUTME: Runs the client against httptest servers using the gorilla upgrader
package protocol

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// startServer runs handler for each upgraded connection and returns a ws:// URL
func startServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, endpoint string) *Client {
	t.Helper()
	c := NewClient(Config{Endpoint: endpoint, APIKey: "secret"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Dial(ctx); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitDone(t *testing.T, c *Client) CloseInfo {
	t.Helper()
	select {
	case <-c.Done():
		return c.CloseInfo()
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for connection to end")
		return CloseInfo{}
	}
}

func TestClientURL(t *testing.T) {
	c := NewClient(Config{Endpoint: "wss://example.com/ws?alt=1", APIKey: "a b"})
	got, err := c.URL()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "key=a+b") || !strings.Contains(got, "alt=1") {
		t.Errorf("unexpected URL %s", got)
	}

	if NewClient(Config{}).config.Endpoint != DefaultEndpoint {
		t.Error("expected default endpoint")
	}
}

func TestClientSendsSetupAndAudio(t *testing.T) {
	received := make(chan ClientMessage, 2)
	keys := make(chan string, 1)

	url := startServer(t, func(r *http.Request, conn *websocket.Conn) {
		keys <- r.URL.Query().Get("key")
		for i := 0; i < 2; i++ {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
		conn.ReadMessage()
	})

	c := dial(t, url)
	if err := c.SendSetup(NewSetup("m", "v", "English")); err != nil {
		t.Fatalf("SendSetup() error = %v", err)
	}
	if err := c.SendAudio(make([]float32, 160)); err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}

	if key := <-keys; key != "secret" {
		t.Errorf("expected API key in query, got %q", key)
	}

	first := <-received
	if first.Setup == nil || first.Setup.Model != "m" {
		t.Errorf("expected setup first, got %+v", first)
	}
	second := <-received
	if second.RealtimeInput == nil || len(second.RealtimeInput.MediaChunks) != 1 {
		t.Fatalf("expected realtime input, got %+v", second)
	}
	// 160 samples * 2 bytes base64 encoded
	if got := len(second.RealtimeInput.MediaChunks[0].Data); got != 428 {
		t.Errorf("expected 428 base64 chars, got %d", got)
	}
}

func TestClientRejectsSetupWithoutPayload(t *testing.T) {
	c := NewClient(Config{})
	if err := c.SendSetup(ClientMessage{}); err == nil {
		t.Error("expected error for empty setup")
	}
}

func TestClientReceivesAudio(t *testing.T) {
	url := startServer(t, func(_ *http.Request, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))
		// Binary frames carry JSON too
		conn.WriteMessage(websocket.BinaryMessage, []byte(`{"serverContent":{"modelTurn":{"parts":[{"text":"hi"},{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AQACAA=="}}]}}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{"turnComplete":true}}`))
		conn.ReadMessage()
	})

	c := dial(t, url)

	select {
	case <-c.SetupComplete:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for setupComplete")
	}

	select {
	case part := <-c.Audio:
		if part.SampleRate != 24000 {
			t.Errorf("expected 24000 Hz, got %d", part.SampleRate)
		}
		if len(part.PCM) != 4 || part.PCM[0] != 1 || part.PCM[2] != 2 {
			t.Errorf("unexpected PCM %v", part.PCM)
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
		t.Fatal("timeout waiting for turn signal")
	}
}

func TestClientCloseClassification(t *testing.T) {
	tests := []struct {
		name  string
		close func(conn *websocket.Conn)
		code  int
		kind  CloseKind
	}{
		{
			name: "quota exceeded",
			close: func(conn *websocket.Conn) {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseQuotaExceeded, "quota"))
			},
			code: CloseQuotaExceeded,
			kind: CloseQuota,
		},
		{
			name: "remote normal close",
			close: func(conn *websocket.Conn) {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			},
			code: websocket.CloseNormalClosure,
			kind: CloseNormal,
		},
		{
			name: "policy violation",
			close: func(conn *websocket.Conn) {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad key"))
			},
			code: websocket.ClosePolicyViolation,
			kind: CloseNetwork,
		},
		{
			name: "dropped connection",
			close: func(conn *websocket.Conn) {
				conn.UnderlyingConn().Close()
			},
			code: websocket.CloseAbnormalClosure,
			kind: CloseNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := startServer(t, func(_ *http.Request, conn *websocket.Conn) {
				tt.close(conn)
				time.Sleep(100 * time.Millisecond)
			})

			c := dial(t, url)
			info := waitDone(t, c)

			if info.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, info.Code)
			}
			if got := Classify(info); got != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, got)
			}
			if c.IsConnected() {
				t.Error("expected client to be disconnected")
			}
		})
	}
}

func TestClientLocalClose(t *testing.T) {
	url := startServer(t, func(_ *http.Request, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := dial(t, url)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	info := waitDone(t, c)
	if !info.Local {
		t.Error("expected local close")
	}
	if Classify(info) != CloseNormal {
		t.Errorf("expected normal close, got %s", Classify(info))
	}

	if err := c.SendAudio([]float32{0}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	// Channels are closed once the connection ends
	if _, ok := <-c.Audio; ok {
		t.Error("expected audio channel to be closed")
	}
}

func TestClientUpgradeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http")})
	err := c.Dial(context.Background())
	if !errors.Is(err, ErrUpgradeRejected) {
		t.Errorf("expected ErrUpgradeRejected, got %v", err)
	}
}

func TestCloseKindString(t *testing.T) {
	if CloseQuota.String() != "quota_exceeded" || CloseNetwork.String() != "network" || CloseNormal.String() != "normal" {
		t.Error("unexpected close kind names")
	}
}
