package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/afroash/comfort-hub/internal/control"
	"github.com/afroash/comfort-hub/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Constants for WebSocket timeouts
const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// StreamObserver is notified as hubs connect and disconnect
type StreamObserver interface {
	StreamConnected()
	StreamDisconnected()
}

// StreamHandler serves the websocket stream hubs push readings over
// and receive their actuator decisions on.
type StreamHandler struct {
	upgrader       websocket.Upgrader
	controller     *control.Controller
	observer       StreamObserver
	logger         zerolog.Logger
	activeHubs     map[string]*HubConnection
	conns          map[string]*websocket.Conn
	allowedOrigins []string
	mutex          sync.RWMutex
	closed         bool
	wg             sync.WaitGroup
}

// HubConnection represents an active hub connection
type HubConnection struct {
	HubID       string    `json:"hub_id"`
	RemoteAddr  string    `json:"remote_addr"`
	LastSeen    time.Time `json:"last_seen"`
	ConnectedAt time.Time `json:"connected_at"`
	BufferSize  int       `json:"buffer_size"`
}

// NewStreamHandler creates a new websocket stream handler. observer may be nil.
func NewStreamHandler(controller *control.Controller, observer StreamObserver, logger zerolog.Logger, allowedOrigins ...string) *StreamHandler {
	h := &StreamHandler{
		controller:     controller,
		observer:       observer,
		logger:         logger,
		activeHubs:     make(map[string]*HubConnection),
		conns:          make(map[string]*websocket.Conn),
		allowedOrigins: allowedOrigins,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request Origin against the allowlist.
// Requests without an Origin header are same-origin and always allowed.
func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}

	h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: origin not in allowlist")
	return false
}

// ServeHTTP upgrades the request and serves the hub until it disconnects
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mutex.RLock()
	closed := h.closed
	h.mutex.RUnlock()
	if closed {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	h.handleConnection(r.Context(), conn)
}

func (h *StreamHandler) handleConnection(ctx context.Context, conn *websocket.Conn) {
	connKey := conn.RemoteAddr().String()
	now := time.Now()

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		conn.Close()
		return
	}
	h.activeHubs[connKey] = &HubConnection{
		HubID:       connKey,
		RemoteAddr:  connKey,
		LastSeen:    now,
		ConnectedAt: now,
	}
	h.conns[connKey] = conn
	h.wg.Add(1)
	h.mutex.Unlock()
	defer h.wg.Done()
	if h.observer != nil {
		h.observer.StreamConnected()
	}

	defer conn.Close()
	defer h.removeHub(connKey)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg models.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.touch(connKey)

		reply := h.handleMessage(ctx, connKey, &msg)
		if reply == nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send reply")
			return
		}
	}
}

// handleMessage processes one hub message and returns the reply to send
func (h *StreamHandler) handleMessage(ctx context.Context, connKey string, msg *models.Message) *models.Message {
	h.logger.Debug().Str("type", string(msg.Type)).Str("hub", h.hubID(connKey)).Msg("Received message")

	switch msg.Type {
	case models.MessageTypeReading:
		return h.handleReading(ctx, msg)
	case models.MessageTypeBatch:
		return h.handleBatch(ctx, msg)
	case models.MessageTypeHeartbeat:
		return h.handleHeartbeat(connKey, msg)
	default:
		h.logger.Warn().Str("type", string(msg.Type)).Msg("Unknown message type")
		return h.errorReply(ErrKindInvalidRequest, "unknown message type "+string(msg.Type))
	}
}

func (h *StreamHandler) handleReading(ctx context.Context, msg *models.Message) *models.Message {
	readingMsg, err := models.DecodePayload[models.ReadingMessage](msg)
	if err != nil {
		return h.errorReply(ErrKindInvalidRequest, "malformed reading payload")
	}
	reading, err := readingMsg.ToReading(h.controller.Location())
	if err != nil {
		return h.errorReply(ErrKindInvalidRequest, err.Error())
	}

	decision, err := h.controller.SubmitReading(ctx, *reading)
	if err != nil {
		_, kind := classifyError(err)
		return h.errorReply(kind, err.Error())
	}
	return h.decisionReply(decision)
}

// handleBatch applies buffered readings in order and replies with the last decision
func (h *StreamHandler) handleBatch(ctx context.Context, msg *models.Message) *models.Message {
	batch, err := models.DecodePayload[models.BatchMessage](msg)
	if err != nil {
		return h.errorReply(ErrKindInvalidRequest, "malformed batch payload")
	}
	if len(batch.Readings) == 0 {
		return h.ackReply()
	}

	var (
		last     models.Decision
		applied  int
		rejected int
	)
	for i := range batch.Readings {
		reading, err := batch.Readings[i].ToReading(h.controller.Location())
		if err != nil {
			rejected++
			continue
		}
		decision, err := h.controller.SubmitReading(ctx, *reading)
		if err != nil {
			_, kind := classifyError(err)
			h.logger.Warn().Err(err).Int("applied", applied).Msg("Batch stopped")
			return h.errorReply(kind, err.Error())
		}
		last = decision
		applied++
	}

	h.logger.Info().Int("applied", applied).Int("rejected", rejected).Msg("Batch processed")
	if applied == 0 {
		return h.errorReply(ErrKindInvalidRequest, "batch contained no valid readings")
	}
	return h.decisionReply(last)
}

func (h *StreamHandler) handleHeartbeat(connKey string, msg *models.Message) *models.Message {
	heartbeat, err := models.DecodePayload[models.HeartbeatMessage](msg)
	if err != nil {
		return h.errorReply(ErrKindInvalidRequest, "malformed heartbeat payload")
	}

	h.mutex.Lock()
	if hub, ok := h.activeHubs[connKey]; ok {
		if heartbeat.HubID != "" {
			hub.HubID = heartbeat.HubID
		}
		hub.BufferSize = heartbeat.BufferSize
	}
	h.mutex.Unlock()

	h.logger.Debug().Str("hub_id", heartbeat.HubID).Int64("uptime", heartbeat.Uptime).Int("buffer_size", heartbeat.BufferSize).Msg("Heartbeat received")
	return h.ackReply()
}

func (h *StreamHandler) decisionReply(decision models.Decision) *models.Message {
	msg, err := models.NewMessage(models.MessageTypeDecision, decision)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create decision message")
		return nil
	}
	return msg
}

func (h *StreamHandler) ackReply() *models.Message {
	msg, err := models.NewMessage(models.MessageTypeAck, models.AckMessage{Status: "ok"})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create ack message")
		return nil
	}
	return msg
}

func (h *StreamHandler) errorReply(code, message string) *models.Message {
	msg, err := models.NewMessage(models.MessageTypeError, models.ErrorMessage{Code: code, Message: message})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create error message")
		return nil
	}
	return msg
}

func (h *StreamHandler) touch(connKey string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if hub, ok := h.activeHubs[connKey]; ok {
		hub.LastSeen = time.Now()
	}
}

func (h *StreamHandler) hubID(connKey string) string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if hub, ok := h.activeHubs[connKey]; ok {
		return hub.HubID
	}
	return connKey
}

func (h *StreamHandler) removeHub(connKey string) {
	h.mutex.Lock()
	hubID := connKey
	if hub, ok := h.activeHubs[connKey]; ok {
		hubID = hub.HubID
	}
	delete(h.activeHubs, connKey)
	delete(h.conns, connKey)
	h.mutex.Unlock()

	if h.observer != nil {
		h.observer.StreamDisconnected()
	}
	h.logger.Info().Str("hub_id", hubID).Msg("Hub disconnected")
}

// Close refuses new hubs, disconnects the connected ones and waits until
// every connection handler has returned. No reading is submitted after
// Close returns.
func (h *StreamHandler) Close() {
	h.mutex.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mutex.Unlock()

	deadline := time.Now().Add(writeWait)
	frame := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage, frame, deadline)
		conn.Close()
	}
	h.wg.Wait()

	h.logger.Info().Int("hubs", len(conns)).Msg("Stream handler closed")
}

// ActiveHubs returns a snapshot of the connected hubs
func (h *StreamHandler) ActiveHubs() []HubConnection {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	hubs := make([]HubConnection, 0, len(h.activeHubs))
	for _, hub := range h.activeHubs {
		hubs = append(hubs, *hub)
	}
	return hubs
}

// HandleHubs lists the connected hubs
func (h *StreamHandler) HandleHubs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ActiveHubs())
}
