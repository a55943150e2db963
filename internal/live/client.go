package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 50 * time.Second

	// Clients only send control messages
	maxMessageSize = 4 * 1024

	// Send buffer size
	sendBufferSize = 64
)

// Client is one live feed connection
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	send chan []byte

	// stopped is closed once; writers select on it instead of closing send
	stopped  chan struct{}
	stopOnce sync.Once

	mu        sync.RWMutex
	contentID string

	RemoteAddr  string
	ConnectedAt time.Time
}

// NewClient creates a new Client that only receives events for contentID,
// or every event when contentID is empty.
func NewClient(hub *Hub, conn *websocket.Conn, contentID string) *Client {
	return &Client{
		conn:        conn,
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		stopped:     make(chan struct{}),
		contentID:   contentID,
		ConnectedAt: time.Now(),
	}
}

func (c *Client) wants(contentID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contentID == "" || c.contentID == contentID
}

func (c *Client) setFilter(contentID string) {
	c.mu.Lock()
	c.contentID = contentID
	c.mu.Unlock()
}

// enqueue reports false when the buffer is full
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.stopped:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// Send marshals message onto the client's queue
func (c *Client) Send(message *Message) bool {
	data, err := json.Marshal(message)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

// ReadPump handles control messages until the peer goes away
func (c *Client) ReadPump(ctx context.Context) {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				logger.Log.Debug("Live client read ended", zap.String("remote", c.RemoteAddr), zap.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.Send(NewErrorMessage("invalid_json", "Failed to parse message"))
			continue
		}
		c.handleMessage(&message)
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing:
		c.Send(NewReply(message, MessageTypePong, nil))
	case MessageTypeSubscribe:
		var sub SubscribePayload
		if err := message.ParsePayload(&sub); err != nil {
			c.Send(NewErrorMessage("invalid_payload", "subscribe needs a content_id"))
			return
		}
		c.setFilter(sub.ContentID)
		c.Send(NewReply(message, MessageTypeSystem, SystemPayload{
			Event: "subscribed",
			Data:  map[string]interface{}{"content_id": sub.ContentID},
		}))
	default:
		c.Send(NewErrorMessage("unknown_type", "Unknown message type: "+message.Type))
	}
}

// WritePump drains the send queue and keeps the connection alive with pings
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-c.stopped:
			c.flush(ctx)
			c.conn.Close(websocket.StatusGoingAway, "closing")
			return

		case data := <-c.send:
			if err := c.write(ctx, data); err != nil {
				logger.Log.Debug("Live client write failed", zap.String("remote", c.RemoteAddr), zap.Error(err))
				c.hub.Unregister(c)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.hub.Unregister(c)
				return
			}
		}
	}
}

// flush writes whatever is still queued, such as a shutdown notice
func (c *Client) flush(ctx context.Context) {
	for {
		select {
		case data := <-c.send:
			if c.write(ctx, data) != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}
