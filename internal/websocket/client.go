package websocket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. tts_audio carries whole wav clips.
	maxMessageSize = 8 * 1024 * 1024

	sendBufferSize = 256

	defaultBaseURL              = "ws://localhost:46000"
	defaultReconnectBase        = 2 * time.Second
	defaultMaxReconnectAttempts = 5
	defaultHandshakeTimeout     = 10 * time.Second
)

// Config holds configuration for the voice service client
type Config struct {
	BaseURL              string        // Optional: ws(s) base, default ws://localhost:46000
	ReconnectBase        time.Duration // Optional: first reconnect delay, default 2s
	MaxReconnectAttempts int           // Optional: default 5
	HandshakeTimeout     time.Duration // Optional: default 10s
}

// ValidateConfig validates the client Config
func ValidateConfig(config Config) error {
	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid voice service url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("voice service url must use ws or wss, got %q", u.Scheme)
		}
	}
	if config.ReconnectBase < 0 {
		return fmt.Errorf("reconnect base must be positive, got %s", config.ReconnectBase)
	}
	if config.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max reconnect attempts must not be negative, got %d", config.MaxReconnectAttempts)
	}
	return nil
}

// Client is the kiosk's connection to the voice service. It owns the session,
// reconnects with exponential backoff after unexpected closes, and delivers
// parsed inbound messages to a single subscriber.
type Client struct {
	config Config
	dialer *websocket.Dialer
	clock  clock.Clock
	retry  *reconnector
	logger *zap.Logger

	mu            sync.Mutex
	session       *entities.Session
	conn          *connection
	explicitClose bool
	ctx           context.Context
	cancel        context.CancelFunc

	onMessage    func(domain.InboundMessage)
	onConnect    func()
	onDisconnect func()
	onError      func(error)
}

// connection is one live socket with its outbound queue
type connection struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a disconnected client with a freshly generated client id
func NewClient(config Config, clk clock.Clock, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
		logger.Info("Using default voice service url", zap.String("url", config.BaseURL))
	}
	if config.ReconnectBase == 0 {
		config.ReconnectBase = defaultReconnectBase
	}
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}

	session := entities.NewSession(clk.Now())
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	return &Client{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		clock:   clk,
		retry:   newReconnector(clk, config.ReconnectBase, config.MaxReconnectAttempts),
		logger:  logger,
		session: session,
	}, nil
}

// URL returns the endpoint for this client's session
func (c *Client) URL() string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/ws/voice/" + url.PathEscape(c.session.ClientID)
}

// Connect starts one asynchronous connection attempt. Exactly one of the
// connect or error callbacks fires for it. Calling Connect while open or
// connecting is a no-op; calling it after exhaustion restores the retry budget.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	switch c.session.State {
	case entities.ConnectionOpen, entities.ConnectionConnecting:
		c.mu.Unlock()
		return
	}
	c.explicitClose = false
	if c.ctx == nil || c.ctx.Err() != nil {
		c.ctx, c.cancel = context.WithCancel(ctx)
	}
	c.retry.Reset()
	c.session.State = entities.ConnectionConnecting
	c.session.ReconnectAttempt = 0
	c.mu.Unlock()

	go c.dial()
}

// Disconnect closes the socket and suppresses automatic reconnection.
// It is safe to call at any time, including repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.explicitClose = true
	c.retry.Cancel()
	conn := c.conn
	c.conn = nil
	c.session.State = entities.ConnectionDisconnected
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	if conn != nil {
		conn.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.close()
		c.logger.Info("Disconnected from voice service", zap.String("clientID", c.session.ClientID))
	}
}

// SendAudioChunk sends one base64 PCM chunk. It is dropped with a warning when not open.
func (c *Client) SendAudioChunk(data string) {
	c.send(domain.MessageTypeAudioChunk, data)
}

// SendControl sends a control command. It is dropped with a warning when not open.
func (c *Client) SendControl(command string) {
	c.send(domain.MessageTypeControl, command)
}

// IsConnected reports whether the session is open
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.IsOpen()
}

// Session returns a snapshot of the session
func (c *Client) Session() entities.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.session
}

func (c *Client) OnMessage(fn func(domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

func (c *Client) OnDisconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

func (c *Client) send(msgType domain.MessageType, data string) {
	c.mu.Lock()
	conn := c.conn
	open := c.session.IsOpen()
	c.mu.Unlock()

	if !open || conn == nil {
		c.logger.Warn("Dropping outbound message",
			zap.String("type", string(msgType)),
			zap.Error(domain.ErrSendWhileClosed))
		return
	}

	payload, err := EncodeOutbound(msgType, data)
	if err != nil {
		c.logger.Error("Failed to encode outbound message", zap.Error(err))
		return
	}

	select {
	case conn.send <- payload:
	case <-conn.done:
		c.logger.Warn("Dropping outbound message",
			zap.String("type", string(msgType)),
			zap.Error(domain.ErrSendWhileClosed))
	default:
		c.logger.Warn("Outbound buffer full, dropping message", zap.String("type", string(msgType)))
	}
}

func (c *Client) dial() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	endpoint := c.URL()
	ws, _, err := c.dialer.DialContext(ctx, endpoint, nil)

	c.mu.Lock()
	if c.explicitClose || ctx.Err() != nil {
		c.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return
	}

	if err != nil {
		onError := c.onError
		c.mu.Unlock()

		c.logger.Error("Voice service connection failed",
			zap.String("url", endpoint),
			zap.Error(err))
		if onError != nil {
			onError(fmt.Errorf("%w: %v", domain.ErrTransport, err))
		}
		c.scheduleReconnect()
		return
	}

	conn := &connection{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	c.conn = conn
	c.session.MarkOpen()
	c.retry.Reset()
	onConnect := c.onConnect
	c.mu.Unlock()

	c.logger.Info("Connected to voice service",
		zap.String("clientID", c.session.ClientID),
		zap.String("url", endpoint))

	go c.writePump(conn)
	if onConnect != nil {
		onConnect()
	}
	go c.readPump(conn)
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.explicitClose {
		c.mu.Unlock()
		return
	}

	attempt, delay, ok := c.retry.Schedule(c.reconnect)
	if !ok {
		c.session.State = entities.ConnectionFailed
		onError := c.onError
		c.mu.Unlock()

		c.logger.Error("Giving up on voice service",
			zap.Int("attempts", c.config.MaxReconnectAttempts),
			zap.Error(domain.ErrConnectionExhausted))
		if onError != nil {
			onError(domain.ErrConnectionExhausted)
		}
		return
	}

	c.session.State = entities.ConnectionReconnecting
	c.session.ReconnectAttempt = attempt
	c.mu.Unlock()

	c.logger.Info("Scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Int("maxAttempts", c.config.MaxReconnectAttempts),
		zap.Duration("delay", delay))
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.explicitClose || c.session.State != entities.ConnectionReconnecting {
		c.mu.Unlock()
		return
	}
	c.session.State = entities.ConnectionConnecting
	c.mu.Unlock()

	c.dial()
}

// handleClose runs when the read pump exits. Closes we initiated are silent;
// anything else notifies the subscriber and schedules a reconnect.
func (c *Client) handleClose(conn *connection) {
	conn.close()

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.explicitClose {
		c.session.State = entities.ConnectionDisconnected
		c.mu.Unlock()
		return
	}
	c.session.State = entities.ConnectionReconnecting
	onDisconnect := c.onDisconnect
	c.mu.Unlock()

	c.logger.Warn("Voice service connection closed", zap.String("clientID", c.session.ClientID))
	if onDisconnect != nil {
		onDisconnect()
	}
	c.scheduleReconnect()
}

// readPump delivers inbound messages in arrival order
func (c *Client) readPump(conn *connection) {
	defer c.handleClose(conn)

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unsupported frame", zap.Int("type", messageType))
			continue
		}

		msg, err := ParseInbound(message)
		if err != nil {
			c.logger.Warn("Dropping inbound message", zap.Error(err))
			continue
		}
		if !msg.Known() {
			c.logger.Debug("Ignoring unknown message type", zap.String("type", string(msg.Type)))
			continue
		}

		c.mu.Lock()
		onMessage := c.onMessage
		c.mu.Unlock()
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

func (c *Client) writePump(conn *connection) {
	ticker := c.clock.Ticker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				conn.close()
				return
			}

		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.close()
				return
			}

		case <-conn.done:
			return
		}
	}
}

func (conn *connection) close() {
	conn.closeOnce.Do(func() {
		close(conn.done)
		conn.ws.Close()
	})
}
