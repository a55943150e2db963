package live

import (
	"encoding/json"
	"time"
)

// Message types for the live activity feed
const (
	// System messages
	MessageTypeSystem    = "system"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeSubscribe = "subscribe"

	// Attribution events
	MessageTypeContentCreated     = "content_created"
	MessageTypeShareCreated       = "share_created"
	MessageTypeEngagementRecorded = "engagement_recorded"
	MessageTypeRevenueDistributed = "revenue_distributed"
	MessageTypeShareDeleted       = "share_deleted"
	MessageTypeContentDeleted     = "content_deleted"
)

// Message is one frame on the wire
type Message struct {
	Type      string      `json:"type"`
	ContentID string      `json:"content_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	ID        string      `json:"id,omitempty"`
	ReplyTo   string      `json:"reply_to,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewReply creates a response that references the original message ID
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	msg := NewMessage(msgType, payload)
	msg.ReplyTo = original.ID
	return msg
}

// ErrorPayload is the payload for error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) *Message {
	return NewMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// SubscribePayload narrows a client to one content, or to everything when empty
type SubscribePayload struct {
	ContentID string `json:"content_id"`
}

// SystemPayload is the payload for system messages
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ParsePayload decodes the payload into v. Incoming payloads arrive as generic
// JSON values, so they are re-encoded first.
func (m *Message) ParsePayload(v interface{}) error {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Event is what the engine publishes after a committed write
type Event struct {
	Type      string
	ContentID string
	Payload   interface{}
}
