// ABOUTME: Local stand-in for the realtime translation service
// ABOUTME: Speaks the setup/realtime_input/serverContent envelopes over WebSocket
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/livetranslate-go/internal/discovery"
	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/Sendspin/livetranslate-go/pkg/audio/decode"
	"github.com/Sendspin/livetranslate-go/pkg/audio/encode"
	"github.com/Sendspin/livetranslate-go/pkg/audio/resample"
	"github.com/Sendspin/livetranslate-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultPath mirrors the path of the real service endpoint
const DefaultPath = "/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"

// Config configures a mock server
type Config struct {
	// Port to listen on (default: 8765)
	Port int

	// Name used for mDNS advertisement
	Name string

	// Path the WebSocket is served on (default: DefaultPath)
	Path string

	// APIKey, when set, is required as the key query parameter
	APIKey string

	// QuotaAfter closes each connection with the quota close code after
	// this many audio chunks (0 disables)
	QuotaAfter int

	// RejectSetup closes the connection right after setup with a policy violation
	RejectSetup bool

	// OutputRate is the rate of returned audio (default 24000)
	OutputRate int

	// EnableMDNS advertises the server on the local network
	EnableMDNS bool
}

// Stats reports server counters
type Stats struct {
	Connections    int64
	Active         int64
	ChunksReceived int64
	TurnsSent      int64
}

// Server echoes received speech back as resampled model turns
type Server struct {
	config Config

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	mdnsManager *discovery.Manager

	connections    atomic.Int64
	active         atomic.Int64
	chunksReceived atomic.Int64
	turnsSent      atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates a mock server
func NewServer(config Config) *Server {
	if config.Port == 0 {
		config.Port = 8765
	}
	if config.Name == "" {
		config.Name = "livetranslate mock"
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.OutputRate <= 0 {
		config.OutputRate = audio.PlaybackSampleRate
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the WebSocket
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Path returns the WebSocket path
func (s *Server) Path() string {
	return s.config.Path
}

// Start serves until Stop is called
func (s *Server) Start() error {
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Warn().Err(err).Msg("Failed to start mDNS advertisement")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	log.Info().Str("addr", addr).Str("path", s.config.Path).Int("quota_after", s.config.QuotaAfter).Msg("Mock server listening")

	select {
	case <-s.stopChan:
		log.Info().Msg("Mock server shutting down")
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	s.wg.Wait()
	log.Info().Msg("Mock server stopped cleanly")
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Stats returns server counters
func (s *Server) Stats() Stats {
	return Stats{
		Connections:    s.connections.Load(),
		Active:         s.active.Load(),
		ChunksReceived: s.chunksReceived.Load(),
		TurnsSent:      s.turnsSent.Load(),
	}
}

// handleWebSocket checks the key and upgrades the connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.APIKey != "" && r.URL.Query().Get("key") != s.config.APIKey {
		log.Warn().Str("remote", r.RemoteAddr).Msg("Rejecting connection with invalid key")
		http.Error(w, "invalid API key", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	s.connections.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	c := &connection{
		id:        uuid.NewString(),
		conn:      conn,
		server:    s,
		resampler: resample.New(audio.CaptureSampleRate, s.config.OutputRate),
	}
	log.Info().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("New connection")
	c.serve()
}

// connection is one client socket
type connection struct {
	id        string
	conn      *websocket.Conn
	server    *Server
	resampler *resample.Resampler
	chunks    int
}

func (c *connection) serve() {
	defer c.conn.Close()

	// Setup must come first
	msg, err := c.read()
	if err != nil {
		log.Debug().Err(err).Str("conn", c.id).Msg("Connection ended before setup")
		return
	}
	if msg.Setup == nil {
		c.close(websocket.ClosePolicyViolation, "expected setup")
		return
	}

	log.Info().
		Str("conn", c.id).
		Str("model", msg.Setup.Model).
		Str("voice", msg.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName).
		Msg("Setup received")

	if c.server.config.RejectSetup {
		c.close(websocket.ClosePolicyViolation, "setup rejected")
		return
	}

	if err := c.write(protocol.ServerMessage{SetupComplete: &struct{}{}}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-c.server.stopChan:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			c.conn.SetReadDeadline(time.Now().Add(time.Second))
		case <-done:
		}
	}()

	for {
		msg, err := c.read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("conn", c.id).Msg("Read error")
			}
			return
		}
		if msg.RealtimeInput == nil {
			continue
		}

		for _, chunk := range msg.RealtimeInput.MediaChunks {
			if err := c.handleChunk(chunk); err != nil {
				log.Warn().Err(err).Str("conn", c.id).Msg("Failed to handle chunk")
				return
			}
		}

		if q := c.server.config.QuotaAfter; q > 0 && c.chunks >= q {
			log.Info().Str("conn", c.id).Int("chunks", c.chunks).Msg("Quota reached, closing")
			c.close(protocol.CloseQuotaExceeded, "quota exceeded")
			return
		}
	}
}

// handleChunk returns the chunk resampled to the output rate as one model turn
func (c *connection) handleChunk(chunk protocol.MediaChunk) error {
	samples, err := decode.Base64PCM16(chunk.Data)
	if err != nil {
		return fmt.Errorf("invalid audio data: %w", err)
	}
	c.chunks++
	c.server.chunksReceived.Add(1)

	out := c.resampler.Resample(samples)
	turn := protocol.ServerMessage{
		ServerContent: &protocol.ServerContent{
			ModelTurn: &protocol.Content{
				Parts: []protocol.Part{{
					InlineData: &protocol.InlineData{
						MimeType: fmt.Sprintf("%s;rate=%d", audio.MimePCM, c.server.config.OutputRate),
						Data:     encode.Base64PCM16(out),
					},
				}},
			},
		},
	}
	if err := c.write(turn); err != nil {
		return err
	}
	if err := c.write(protocol.ServerMessage{ServerContent: &protocol.ServerContent{TurnComplete: true}}); err != nil {
		return err
	}
	c.server.turnsSent.Add(1)
	return nil
}

func (c *connection) read() (protocol.ClientMessage, error) {
	var msg protocol.ClientMessage
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("invalid message: %w", err)
	}
	return msg, nil
}

func (c *connection) write(msg protocol.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// close sends a close frame and waits briefly for the peer's reply
func (c *connection) close(code int, reason string) {
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	c.conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
