package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType names the payload carried by a stream Message
type MessageType string

// Hub to server
const (
	MessageTypeReading   MessageType = "reading"
	MessageTypeBatch     MessageType = "batch"
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// Server to hub
const (
	MessageTypeAck      MessageType = "ack"
	MessageTypeDecision MessageType = "decision"
	MessageTypeError    MessageType = "error"
)

// Inbound reports whether hubs are allowed to send t
func (t MessageType) Inbound() bool {
	switch t {
	case MessageTypeReading, MessageTypeBatch, MessageTypeHeartbeat:
		return true
	}
	return false
}

// Message wraps every frame exchanged on the hub stream. Payload stays raw
// until the receiver knows which struct Type maps to.
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage encodes payload and stamps the envelope with the current time
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Payload: raw, Timestamp: time.Now()}, nil
}

// UnmarshalPayload decodes the raw payload into v
func (m *Message) UnmarshalPayload(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// DecodePayload is UnmarshalPayload for a concrete payload type
func DecodePayload[T any](m *Message) (T, error) {
	var v T
	err := m.UnmarshalPayload(&v)
	return v, err
}

// BatchMessage carries buffered readings, oldest first. The server answers
// with the decision for the last one.
type BatchMessage struct {
	Readings []ReadingMessage `json:"readings"`
	Count    int              `json:"count"`
}

// HeartbeatMessage announces a hub and keeps its stream alive
type HeartbeatMessage struct {
	HubID      string `json:"hub_id"`
	Uptime     int64  `json:"uptime"`
	BufferSize int    `json:"buffer_size"`
}

type AckMessage struct {
	Status string `json:"status"`
}

// ErrorMessage reports a rejected frame. Code is one of the API error kinds.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorMessage) Error() string {
	return e.Code + ": " + e.Message
}
