package live

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/hypechain/backend/internal/logger"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests into live feed connections
type Handler struct {
	hub     *Hub
	origins []string
}

// NewHandler creates a new live feed handler. origins lists the allowed
// browser Origin host patterns; same-origin requests are always allowed.
func NewHandler(hub *Hub, origins []string) *Handler {
	return &Handler{hub: hub, origins: origins}
}

// Serve handles GET /ws/activity?content_id=
func (h *Handler) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		logger.Log.Warn("Live feed upgrade failed", zap.Error(err))
		return
	}

	contentID := c.Query("content_id")
	client := NewClient(h.hub, conn, contentID)
	client.RemoteAddr = c.ClientIP()
	h.hub.Register(client)

	client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "Subscribed to live activity",
		Data: map[string]interface{}{
			"content_id":  contentID,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))

	// The request context ends when the handler returns, so the pumps get
	// their own lifetime tied to the connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
