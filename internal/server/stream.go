package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/transport"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamEventHeartbeat = "heartbeat"
	streamSource         = "uibuilder-backend"
)

type heartbeatPayload struct {
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// handleRoomStream relays room events to a read-only observer as server-sent events.
// Each SSE event is named after the mutation and carries the JSON envelope.
func (h *httpHandler) handleRoomStream(c *gin.Context) {
	code := roomCodeFrom(c)
	ctx := c.Request.Context()
	subscription, err := h.hub.Observe(ctx, code)
	if err != nil {
		h.respondHubError(c, "stream", err)
		return
	}
	defer subscription.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	codec := transport.JSON()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent(streamEventHeartbeat, heartbeatPayload{Source: streamSource, Timestamp: time.Now().UTC().Unix()})
			return true
		case event, ok := <-subscription.Events:
			if !ok {
				return false
			}
			payload, err := transport.EncodeMutation(codec, event.Mutation)
			if err != nil {
				h.logger.Error("failed to encode stream event",
					zap.String("room_code", code.String()),
					zap.String("event", string(event.Mutation.Name())),
					zap.Error(err))
				return true
			}
			c.SSEvent(string(event.Mutation.Name()), json.RawMessage(payload))
			return true
		}
	})
}
