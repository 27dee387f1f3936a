// ABOUTME: WebSocket client for the live translation service
// ABOUTME: Handles dialing, setup, audio streaming and close classification
package protocol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Sendspin/livetranslate-go/pkg/audio"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultEndpoint is the bidirectional streaming endpoint of the service
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"

// CloseQuotaExceeded is the close code the service uses when a quota or rate limit is hit
const CloseQuotaExceeded = websocket.CloseInternalServerErr

const writeTimeout = 10 * time.Second

var (
	// ErrNotConnected is returned when sending on a client that is not open
	ErrNotConnected = errors.New("not connected")

	// ErrUpgradeRejected is returned when the server answers the upgrade with an HTTP error
	ErrUpgradeRejected = errors.New("websocket upgrade rejected")
)

// Config holds client configuration
type Config struct {
	Endpoint         string
	APIKey           string
	HandshakeTimeout time.Duration
	Header           http.Header
}

// AudioPart is decoded inline audio from the model's turn
type AudioPart struct {
	MimeType   string
	SampleRate int
	PCM        []byte // PCM16LE mono
}

// TurnSignal reports turn boundaries sent by the service
type TurnSignal struct {
	Complete    bool
	Interrupted bool
}

// CloseKind classifies why a connection ended
type CloseKind int

const (
	// CloseNormal is a clean close by either side
	CloseNormal CloseKind = iota
	// CloseQuota is a close with CloseQuotaExceeded
	CloseQuota
	// CloseNetwork is an abnormal end without a clean close handshake
	CloseNetwork
)

// String returns the kind name
func (k CloseKind) String() string {
	switch k {
	case CloseNormal:
		return "normal"
	case CloseQuota:
		return "quota_exceeded"
	case CloseNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// CloseInfo describes how a connection ended
type CloseInfo struct {
	Code   int
	Reason string
	Local  bool  // closed by this client
	Err    error // read error for abnormal closes
}

// Classify maps a close to the kind reported to the user
func Classify(info CloseInfo) CloseKind {
	switch {
	case info.Local:
		return CloseNormal
	case info.Code == CloseQuotaExceeded:
		return CloseQuota
	case info.Code == websocket.CloseNormalClosure, info.Code == websocket.CloseGoingAway:
		return CloseNormal
	default:
		return CloseNetwork
	}
}

// Client represents a WebSocket client
type Client struct {
	config Config

	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	// Message channels, closed when the connection ends
	Audio         chan AudioPart
	Turns         chan TurnSignal
	SetupComplete chan struct{}

	// State
	connected bool
	local     bool
	closeInfo CloseInfo
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:        config,
		Audio:         make(chan AudioPart, 64),
		Turns:         make(chan TurnSignal, 16),
		SetupComplete: make(chan struct{}, 1),
		done:          make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// URL returns the endpoint with the API key appended as a query parameter
func (c *Client) URL() (string, error) {
	u, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if c.config.APIKey != "" {
		q := u.Query()
		q.Set("key", c.config.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Dial opens the WebSocket and starts the reader
func (c *Client) Dial(ctx context.Context) error {
	target, err := c.URL()
	if err != nil {
		return err
	}

	log.Debug().Str("endpoint", c.config.Endpoint).Msg("Connecting")

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, target, c.config.Header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: HTTP %d", ErrUpgradeRejected, resp.StatusCode)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// SendSetup sends the setup envelope
func (c *Client) SendSetup(msg ClientMessage) error {
	if msg.Setup == nil {
		return fmt.Errorf("message has no setup")
	}
	return c.sendJSON(msg)
}

// SendAudio sends samples as one realtime input chunk
func (c *Client) SendAudio(samples []float32) error {
	return c.sendJSON(NewAudioInput(samples))
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg ClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// readMessages reads and routes incoming messages until the connection ends
func (c *Client) readMessages() {
	info := CloseInfo{}
	defer func() {
		c.finish(info)
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			info = c.closeInfoFor(err)
			return
		}

		// The service sends JSON in both text and binary frames
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		c.handleMessage(data)
	}
}

func (c *Client) closeInfoFor(err error) CloseInfo {
	c.mu.RLock()
	local := c.local
	c.mu.RUnlock()

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseInfo{Code: ce.Code, Reason: ce.Text, Local: local}
	}
	if local {
		return CloseInfo{Code: websocket.CloseNormalClosure, Local: true}
	}
	return CloseInfo{Code: websocket.CloseAbnormalClosure, Err: err}
}

// handleMessage routes a server envelope
func (c *Client) handleMessage(data []byte) {
	msg, err := ParseServerMessage(data)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping unparseable message")
		return
	}

	if msg.SetupComplete != nil {
		log.Debug().Msg("Setup complete")
		select {
		case c.SetupComplete <- struct{}{}:
		default:
		}
	}

	for _, part := range msg.AudioParts() {
		pcm, err := base64.StdEncoding.DecodeString(part.Data)
		if err != nil {
			log.Warn().Err(err).Str("mime_type", part.MimeType).Msg("Dropping undecodable audio part")
			continue
		}
		select {
		case c.Audio <- AudioPart{
			MimeType:   part.MimeType,
			SampleRate: SampleRate(part.MimeType, audio.PlaybackSampleRate),
			PCM:        pcm,
		}:
		case <-c.ctx.Done():
			return
		}
	}

	if sc := msg.ServerContent; sc != nil && (sc.TurnComplete || sc.Interrupted) {
		select {
		case c.Turns <- TurnSignal{Complete: sc.TurnComplete, Interrupted: sc.Interrupted}:
		default:
			log.Debug().Msg("Turn channel full, dropping signal")
		}
	}
}

// finish records the close and releases waiters
func (c *Client) finish(info CloseInfo) {
	c.mu.Lock()
	c.connected = false
	c.closeInfo = info
	c.conn.Close()
	c.mu.Unlock()

	c.cancel()
	close(c.Audio)
	close(c.Turns)
	close(c.done)

	log.Debug().Int("code", info.Code).Str("reason", info.Reason).Bool("local", info.Local).Msg("Connection closed")
}

// Done is closed once the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// CloseInfo returns how the connection ended; valid after Done is closed
func (c *Client) CloseInfo() CloseInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeInfo
}

// Close sends a close frame and shuts the connection down
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected || c.local {
		c.mu.Unlock()
		return nil
	}
	c.local = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()

	c.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	// Wait briefly for the peer to echo the close, then force it
	select {
	case <-c.done:
	case <-time.After(time.Second):
		conn.Close()
		<-c.done
	}

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Debug().Err(err).Msg("Close frame not sent")
	}
	return nil
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
