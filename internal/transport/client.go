package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultEventBuffer   = 64
	defaultWriteTimeout  = 10 * time.Second
	closeMessageDeadline = time.Second
)

var (
	errMissingURL = errors.New("websocket url is required")
	// ErrClientClosed indicates a send on a closed client.
	ErrClientClosed = errors.New("transport: client closed")
	// ErrRoomMismatch indicates a send addressed to a room other than the joined one.
	ErrRoomMismatch = errors.New("transport: room mismatch")

	noOpLogger = zap.NewNop()
)

// ClientConfig configures a websocket client.
type ClientConfig struct {
	URL          string
	Codec        Codec
	Header       http.Header
	EventBuffer  int
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// Client is a collab.Transport over one room websocket.
type Client struct {
	conn         *websocket.Conn
	codec        Codec
	writeTimeout time.Duration
	logger       *zap.Logger

	writeMu sync.Mutex
	events  chan collab.Mutation
	done    chan struct{}

	closeOnce sync.Once
	roomMu    sync.RWMutex
	room      canvas.RoomCode
	resync    atomic.Bool
}

// Dial opens the websocket and starts reading events. The codec is offered as the
// websocket subprotocol; the server's choice wins.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errMissingURL
	}
	codec := cfg.Codec
	if codec == nil {
		codec = JSON()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout,
		Subprotocols:     []string{codec.Name()},
	}
	conn, response, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.URL, err)
	}
	if response != nil && response.Body != nil {
		response.Body.Close()
	}
	if negotiated := conn.Subprotocol(); negotiated != "" && negotiated != codec.Name() {
		codec, err = CodecFor(negotiated)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	client := &Client{
		conn:         conn,
		codec:        codec,
		writeTimeout: writeTimeout,
		logger:       logger,
		events:       make(chan collab.Mutation, buffer),
		done:         make(chan struct{}),
	}
	go client.readLoop()
	return client, nil
}

// Codec returns the negotiated codec.
func (c *Client) Codec() Codec { return c.codec }

// Events streams decoded room events. The channel closes when the connection ends.
func (c *Client) Events() <-chan collab.Mutation { return c.events }

// ResyncRequired reports whether the server ended the stream because this client fell
// behind. The caller should dial again and rejoin to reload the canvas.
func (c *Client) ResyncRequired() bool { return c.resync.Load() }

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
				c.resync.Store(true)
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseTryAgainLater) && !c.isClosed() {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			c.shutdown()
			return
		}
		message, err := Decode(c.codec, data)
		if err != nil {
			c.logger.Warn("dropping undecodable event", zap.Error(err))
			continue
		}
		if message.Mutation == nil {
			continue
		}
		select {
		case c.events <- message.Mutation:
		case <-c.done:
			return
		}
	}
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	if c.isClosed() {
		return nil
	}
	c.shutdown()
	c.writeMu.Lock()
	deadline := time.Now().Add(closeMessageDeadline)
	writeErr := c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()
	if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
		c.logger.Debug("close frame not sent", zap.Error(writeErr))
	}
	return c.conn.Close()
}

func (c *Client) write(ctx context.Context, data []byte) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(c.codec.MessageType(), data)
}

func (c *Client) send(ctx context.Context, code canvas.RoomCode, mutation collab.Mutation) error {
	c.roomMu.RLock()
	joined := c.room
	c.roomMu.RUnlock()
	if joined != "" && joined != code {
		return fmt.Errorf("%w: joined %s, got %s", ErrRoomMismatch, joined, code)
	}
	data, err := EncodeMutation(c.codec, mutation)
	if err != nil {
		return err
	}
	return c.write(ctx, data)
}

// JoinRoom announces the user to the room behind the websocket.
func (c *Client) JoinRoom(ctx context.Context, code canvas.RoomCode, user collab.User) error {
	data, err := EncodeJoin(c.codec, JoinRequest{RoomCode: code, User: user})
	if err != nil {
		return err
	}
	if err := c.write(ctx, data); err != nil {
		return err
	}
	c.roomMu.Lock()
	c.room = code
	c.roomMu.Unlock()
	return nil
}

func (c *Client) AddPage(ctx context.Context, code canvas.RoomCode, page *canvas.Page) error {
	return c.send(ctx, code, collab.PageAdded{Page: page})
}

func (c *Client) RemovePage(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID) error {
	return c.send(ctx, code, collab.PageRemoved{PageID: pageID})
}

func (c *Client) AddCanvasComponent(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, component *canvas.Component) error {
	return c.send(ctx, code, collab.ComponentAdded{PageID: pageID, Component: component})
}

func (c *Client) AddChildComponent(ctx context.Context, code canvas.RoomCode, parentID canvas.ComponentID, component *canvas.Component, pageID canvas.PageID) error {
	return c.send(ctx, code, collab.ChildComponentAdded{PageID: pageID, ParentID: parentID, Child: component})
}

func (c *Client) RemoveCanvasComponent(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID) error {
	return c.send(ctx, code, collab.ComponentRemoved{PageID: pageID, ComponentID: componentID})
}

func (c *Client) MoveComponent(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID, position collab.Position) error {
	return c.send(ctx, code, collab.ComponentMoved{PageID: pageID, ComponentID: componentID, Position: position})
}

func (c *Client) UpdateComponentProperties(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID, patch canvas.Patch) error {
	return c.send(ctx, code, collab.ComponentPropertiesUpdated{PageID: pageID, ComponentID: componentID, Patch: patch})
}

func (c *Client) ResetComponentSize(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID) error {
	return c.send(ctx, code, collab.ComponentSizeReset{PageID: pageID, ComponentID: componentID})
}

var _ collab.Transport = (*Client)(nil)
