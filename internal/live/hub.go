// Package live streams attribution events to browsers over WebSocket.
// Uses github.com/coder/websocket.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zfogg/hypechain/backend/internal/logger"
	"github.com/zfogg/hypechain/backend/internal/metrics"
	"go.uber.org/zap"
)

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast chan *Message

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan *Message, 256),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	defer close(h.done)
	logger.Log.Info("Live feed hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Publish queues an event for every interested client. It never blocks the
// caller; when the queue is full the event is dropped and counted.
func (h *Hub) Publish(event Event) {
	msg := NewMessage(event.Type, event.Payload)
	msg.ContentID = event.ContentID

	select {
	case h.broadcast <- msg:
		metrics.Get().LiveEventsTotal.WithLabelValues(event.Type).Inc()
	case <-h.ctx.Done():
	default:
		metrics.Get().LiveDroppedEvents.Inc()
		logger.Log.Warn("Live feed queue full, dropping event", zap.String("type", event.Type))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	metrics.Get().LiveConnections.Inc()
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.stop()
		metrics.Get().LiveConnections.Dec()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Error marshaling live message", zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		if !client.wants(message.ContentID) {
			continue
		}
		if !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is disconnected rather than stalling the feed
	for _, client := range slow {
		metrics.Get().LiveDroppedEvents.Inc()
		h.Unregister(client)
	}
}

// Shutdown stops the hub and waits for the loop to exit
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(&Message{
		Type:      MessageTypeSystem,
		Payload:   SystemPayload{Event: "server_shutdown"},
		Timestamp: time.Now().UTC(),
	})

	for client := range h.clients {
		client.enqueue(data)
		client.stop()
		metrics.Get().LiveConnections.Dec()
	}
	logger.Log.Info("Live feed hub stopped", zap.Int("closed_connections", len(h.clients)))
	h.clients = make(map[*Client]struct{})
}
