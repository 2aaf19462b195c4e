package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/preview"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/realtime"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultHeartbeatInterval = 25 * time.Second

var (
	errMissingHub      = errors.New("room hub dependency required")
	errMissingRenderer = errors.New("preview renderer dependency required")
)

// RoomHub is the room authority the HTTP surface drives.
type RoomHub interface {
	Join(ctx context.Context, code canvas.RoomCode, user collab.User) (*realtime.Subscription, error)
	Observe(ctx context.Context, code canvas.RoomCode) (*realtime.Subscription, error)
	Submit(ctx context.Context, code canvas.RoomCode, mutation collab.Mutation, origin int64) (collab.Outcome, error)
	Snapshot(ctx context.Context, code canvas.RoomCode) ([]*canvas.Page, error)
	Users(ctx context.Context, code canvas.RoomCode) ([]collab.User, error)
}

type Dependencies struct {
	Hub               RoomHub
	Renderer          *preview.Renderer
	Logger            *zap.Logger
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Hub == nil {
		return nil, errMissingHub
	}
	if deps.Renderer == nil {
		return nil, errMissingRenderer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		hub:       deps.Hub,
		renderer:  deps.Renderer,
		logger:    logger,
		heartbeat: heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)

	rooms := router.Group("/rooms/:code")
	rooms.Use(handler.requireRoomCode)
	rooms.GET("/ws", handler.handleRoomSocket)
	rooms.GET("/stream", handler.handleRoomStream)
	rooms.GET("/pages", handler.handlePages)
	rooms.GET("/users", handler.handleUsers)
	rooms.POST("/mutations", handler.handleMutation)
	rooms.GET("/export", handler.handleExport)
	rooms.GET("/pages/:pageID/layout", handler.handleLayout)
	rooms.GET("/pages/:pageID/preview.png", handler.handlePreview)

	return router, nil
}

// corsMiddleware allows every origin without credentials unless an explicit origin
// list is configured; only listed origins may send credentials.
func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Sec-WebSocket-Protocol"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) > 0 && !(len(origins) == 1 && origins[0] == "*") {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

type httpHandler struct {
	hub       RoomHub
	renderer  *preview.Renderer
	logger    *zap.Logger
	heartbeat time.Duration
}

const roomCodeContextKey = "uibuilder_room_code"

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) requireRoomCode(c *gin.Context) {
	code, err := canvas.NewRoomCode(c.Param("code"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_room_code"})
		return
	}
	c.Set(roomCodeContextKey, code)
	c.Next()
}

func roomCodeFrom(c *gin.Context) canvas.RoomCode {
	code, _ := c.Get(roomCodeContextKey)
	typed, _ := code.(canvas.RoomCode)
	return typed
}

// respondHubError maps hub failures onto HTTP statuses.
func (h *httpHandler) respondHubError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, realtime.ErrNotClientMutation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "mutation_not_allowed"})
	case errors.Is(err, realtime.ErrHubClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "timeout"})
	default:
		h.logger.Error("room request failed",
			zap.String("operation", operation),
			zap.String("room_code", roomCodeFrom(c).String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "room_failed"})
	}
}
