package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/realtime"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	socketWriteTimeout = 10 * time.Second
	socketJoinTimeout  = 15 * time.Second
	socketReadLimit    = 1 << 20
)

var errJoinRoomMismatch = errors.New("join request names another room")

var socketUpgrader = websocket.Upgrader{
	Subprotocols: transport.Subprotocols(),
	CheckOrigin:  func(*http.Request) bool { return true },
}

// handleRoomSocket upgrades to a websocket participant. The participant is named by
// the user/name query parameters or, when absent, by a joinRoom first message.
func (h *httpHandler) handleRoomSocket(c *gin.Context) {
	code := roomCodeFrom(c)
	conn, err := socketUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("room_code", code.String()), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(socketReadLimit)

	codec, err := transport.CodecFor(conn.Subprotocol())
	if err != nil {
		h.closeSocket(conn, websocket.CloseInternalServerErr, "codec_unavailable")
		return
	}
	logger := h.logger.With(zap.String("room_code", code.String()), zap.String("codec", codec.Name()))

	user, err := h.socketUser(c, conn, codec, code)
	if err != nil {
		logger.Debug("websocket join rejected", zap.Error(err))
		h.closeSocket(conn, websocket.ClosePolicyViolation, "join_required")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	subscription, err := h.hub.Join(ctx, code, user)
	if err != nil {
		logger.Warn("websocket join failed", zap.Error(err))
		h.closeSocket(conn, websocket.CloseTryAgainLater, "room_unavailable")
		return
	}
	defer subscription.Close()
	logger = logger.With(zap.String("user_id", user.ID), zap.Int64("subscriber_id", subscription.ID))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeEvents(conn, codec, subscription, logger)
	}()

	h.readMutations(ctx, conn, codec, code, subscription.ID, logger)
	cancel()
	subscription.Close()
	<-writerDone
}

func (h *httpHandler) socketUser(c *gin.Context, conn *websocket.Conn, codec transport.Codec, code canvas.RoomCode) (collab.User, error) {
	if userID := strings.TrimSpace(c.Query("user")); userID != "" {
		return collab.User{ID: userID, Name: strings.TrimSpace(c.Query("name"))}, nil
	}
	if err := conn.SetReadDeadline(time.Now().Add(socketJoinTimeout)); err != nil {
		return collab.User{}, err
	}
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	_, data, err := conn.ReadMessage()
	if err != nil {
		return collab.User{}, err
	}
	message, err := transport.Decode(codec, data)
	if err != nil {
		return collab.User{}, err
	}
	if message.Join == nil {
		return collab.User{}, transport.ErrMalformedMessage
	}
	if message.Join.RoomCode != code {
		return collab.User{}, errJoinRoomMismatch
	}
	return message.Join.User, nil
}

func (h *httpHandler) readMutations(ctx context.Context, conn *websocket.Conn, codec transport.Codec, code canvas.RoomCode, origin int64, logger *zap.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		message, err := transport.Decode(codec, data)
		if err != nil {
			logger.Debug("websocket message rejected", zap.Error(err))
			continue
		}
		for _, rejected := range message.Rejected {
			logger.Debug("property update rejected", zap.Error(rejected))
		}
		if message.Mutation == nil {
			continue
		}
		if _, err := h.hub.Submit(ctx, code, message.Mutation, origin); err != nil {
			if errors.Is(err, realtime.ErrHubClosed) || ctx.Err() != nil {
				return
			}
			logger.Debug("websocket mutation rejected",
				zap.String("event", string(message.Mutation.Name())),
				zap.Error(err))
		}
	}
}

func (h *httpHandler) writeEvents(conn *websocket.Conn, codec transport.Codec, subscription *realtime.Subscription, logger *zap.Logger) {
	for event := range subscription.Events {
		payload, err := transport.EncodeMutation(codec, event.Mutation)
		if err != nil {
			logger.Error("failed to encode room event", zap.String("event", string(event.Mutation.Name())), zap.Error(err))
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteMessage(codec.MessageType(), payload); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			_ = conn.Close()
			return
		}
	}
	if subscription.Evicted() {
		logger.Warn("websocket participant fell behind")
		h.closeSocket(conn, websocket.CloseTryAgainLater, "resync_required")
		return
	}
	h.closeSocket(conn, websocket.CloseNormalClosure, "")
}

func (h *httpHandler) closeSocket(conn *websocket.Conn, code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
}
