package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/afroash/comfort-hub/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 10 * time.Second

var (
	// ErrNotConnected is returned when sending while the link is down
	ErrNotConnected = errors.New("not connected")

	errServerSilent = errors.New("no traffic from server within pong timeout")
)

// ConnectionState is the lifecycle stage of the hub link
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

var stateNames = [...]string{"disconnected", "connecting", "connected"}

func (cs ConnectionState) String() string {
	if cs < 0 || int(cs) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[cs]
}

// DecisionHandler is called for every decision the server sends back
type DecisionHandler func(models.Decision)

// ConnectionConfig holds configuration for the connection
type ConnectionConfig struct {
	URL                  string
	ConnectTimeout       time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
	PongTimeout          time.Duration
}

// Connection keeps a hub attached to the comfort server's sensor stream.
// Readings go up; decisions come back and are handed to the registered
// DecisionHandler.
type Connection struct {
	cfg     ConnectionConfig
	logger  zerolog.Logger
	hub     *models.HubInfo
	buffer  *ReadingBuffer
	backoff *backoff

	onDecision DecisionHandler

	state    atomic.Int32
	lastSeen atomic.Int64 // unix nanos of the last frame from the server

	mu      sync.Mutex // guards ws
	ws      *websocket.Conn
	writeMu sync.Mutex // serialises frames on ws
}

// NewConnection creates a connection manager. buffer may be nil; when set
// its size is reported in heartbeats.
func NewConnection(cfg ConnectionConfig, hub *models.HubInfo, buffer *ReadingBuffer, logger zerolog.Logger) *Connection {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Connection{
		cfg:     cfg,
		logger:  logger,
		hub:     hub,
		buffer:  buffer,
		backoff: newBackoff(cfg.ReconnectInterval, cfg.MaxReconnectInterval),
	}
}

// OnDecision registers the callback for decisions. Call before Run.
func (c *Connection) OnDecision(handler DecisionHandler) {
	c.onDecision = handler
}

func (c *Connection) setState(s ConnectionState) {
	if ConnectionState(c.state.Swap(int32(s))) != s {
		c.logger.Info().Str("state", s.String()).Msg("Connection state updated")
	}
}

// State returns the current connection state
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect dials the server and registers the hub with a first heartbeat
func (c *Connection) Connect(ctx context.Context) error {
	c.setState(StateConnecting)
	c.logger.Info().Str("url", c.cfg.URL).Msg("Connecting to server")

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	ws, resp, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", c.cfg.URL, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	resp.Body.Close()

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	c.setState(StateConnected)
	c.backoff.Reset()

	if err := c.sendHeartbeat(); err != nil {
		c.drop()
		return fmt.Errorf("register hub: %w", err)
	}
	return nil
}

// Run keeps the link up until ctx is cancelled, reconnecting with
// exponential backoff. It always returns ctx.Err().
func (c *Connection) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Connection failed")
		} else {
			err := c.serve(ctx)
			c.logger.Info().Err(err).Msg("Connection lost, will reconnect")
		}

		delay := c.backoff.Next()
		c.logger.Info().Dur("delay", delay).Msg("Waiting before reconnect")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

// serve runs the read and heartbeat loops until one of them fails or ctx
// ends, then tears the socket down.
func (c *Connection) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.heartbeatLoop(gctx) })
	g.Go(func() error {
		// unblocks ReadJSON
		<-gctx.Done()
		c.drop()
		return nil
	})
	return g.Wait()
}

func (c *Connection) socket() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

func (c *Connection) drop() {
	c.mu.Lock()
	if c.ws != nil {
		c.ws.Close()
	}
	c.mu.Unlock()
	c.setState(StateDisconnected)
}

// Send forwards a single reading
func (c *Connection) Send(reading *models.Reading) error {
	return c.send(models.MessageTypeReading, models.NewReadingMessage(reading))
}

// SendBatch forwards buffered readings in one frame, oldest first
func (c *Connection) SendBatch(readings []*models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	wire := make([]models.ReadingMessage, 0, len(readings))
	for _, r := range readings {
		wire = append(wire, models.NewReadingMessage(r))
	}
	if err := c.send(models.MessageTypeBatch, models.BatchMessage{Readings: wire, Count: len(wire)}); err != nil {
		return err
	}
	c.logger.Info().Int("count", len(readings)).Msg("Sent batch of readings")
	return nil
}

func (c *Connection) send(msgType models.MessageType, payload any) error {
	ws := c.socket()
	if ws == nil || !c.IsConnected() {
		return ErrNotConnected
	}
	msg, err := models.NewMessage(msgType, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteJSON(msg)
}

func (c *Connection) sendHeartbeat() error {
	hb := models.HeartbeatMessage{
		HubID:  c.hub.ID,
		Uptime: int64(c.hub.Uptime().Seconds()),
	}
	if c.buffer != nil {
		hb.BufferSize = c.buffer.Size()
	}
	return c.send(models.MessageTypeHeartbeat, hb)
}

func (c *Connection) markSeen() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Connection) sinceSeen() time.Duration {
	return time.Since(time.Unix(0, c.lastSeen.Load()))
}

func (c *Connection) readLoop(ctx context.Context) error {
	ws := c.socket()
	for {
		var msg models.Message
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn().Err(err).Msg("Read error")
			return fmt.Errorf("read: %w", err)
		}
		c.markSeen()
		c.dispatch(&msg)
	}
}

func (c *Connection) dispatch(msg *models.Message) {
	switch msg.Type {
	case models.MessageTypeDecision:
		decision, err := models.DecodePayload[models.Decision](msg)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Malformed decision")
			return
		}
		c.logger.Debug().Str("fan", string(decision.Fan)).Str("light", string(decision.Light)).Msg("Received decision")
		if c.onDecision != nil {
			c.onDecision(decision)
		}
	case models.MessageTypeError:
		if e, err := models.DecodePayload[models.ErrorMessage](msg); err == nil {
			c.logger.Warn().Str("code", e.Code).Str("msg", e.Message).Msg("Server rejected message")
		}
	case models.MessageTypeAck:
	default:
		c.logger.Debug().Str("type", string(msg.Type)).Msg("Unknown message type")
	}
}

// heartbeatLoop sends periodic heartbeats and gives up when the server
// has been silent for longer than the pong timeout.
func (c *Connection) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	c.markSeen()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := c.sendHeartbeat(); err != nil {
			return fmt.Errorf("heartbeat: %w", err)
		}
		if c.sinceSeen() > c.cfg.PongTimeout {
			c.logger.Warn().Dur("silent_for", c.sinceSeen()).Msg("Server stopped responding")
			return errServerSilent
		}
	}
}

// Close sends a close frame and shuts the socket
func (c *Connection) Close() error {
	c.setState(StateDisconnected)

	if ws := c.socket(); ws != nil {
		c.writeMu.Lock()
		ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		ws.Close()
	}

	c.logger.Info().Msg("Connection closed")
	return nil
}
