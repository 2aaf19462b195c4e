package collab

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"go.uber.org/zap"
)

// Transport is the room pub/sub a client session talks through. Outbound calls are
// fire-and-forget; inbound events arrive on Events until the transport closes.
type Transport interface {
	JoinRoom(ctx context.Context, code canvas.RoomCode, user User) error
	AddPage(ctx context.Context, code canvas.RoomCode, page *canvas.Page) error
	RemovePage(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID) error
	AddCanvasComponent(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, component *canvas.Component) error
	AddChildComponent(ctx context.Context, code canvas.RoomCode, parentID canvas.ComponentID, component *canvas.Component, pageID canvas.PageID) error
	RemoveCanvasComponent(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID) error
	MoveComponent(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID, position Position) error
	UpdateComponentProperties(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID, patch canvas.Patch) error
	ResetComponentSize(ctx context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID) error
	Events() <-chan Mutation
}

// Emitter receives the mutations a session produces locally.
type Emitter interface {
	Emit(mutation Mutation)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Mutation)

// Emit calls f.
func (f EmitterFunc) Emit(mutation Mutation) {
	f(mutation)
}

type discardEmitter struct{}

func (discardEmitter) Emit(Mutation) {}

// TransportEmitter forwards emitted mutations to a Transport. Send failures are logged and dropped.
type TransportEmitter struct {
	ctx       context.Context
	transport Transport
	room      canvas.RoomCode
	logger    *zap.Logger
}

// NewTransportEmitter binds a transport to one room.
func NewTransportEmitter(ctx context.Context, transport Transport, room canvas.RoomCode, logger *zap.Logger) *TransportEmitter {
	if logger == nil {
		logger = noOpLogger
	}
	return &TransportEmitter{ctx: ctx, transport: transport, room: room, logger: logger}
}

// Emit dispatches the mutation to the matching transport call.
func (e *TransportEmitter) Emit(mutation Mutation) {
	if err := e.send(mutation); err != nil {
		e.logger.Warn("transport emit failed",
			zap.String("room_code", e.room.String()),
			zap.String("event", string(mutation.Name())),
			zap.Error(err))
	}
}

func (e *TransportEmitter) send(mutation Mutation) error {
	switch typed := mutation.(type) {
	case PageAdded:
		return e.transport.AddPage(e.ctx, e.room, typed.Page)
	case PageRemoved:
		return e.transport.RemovePage(e.ctx, e.room, typed.PageID)
	case ComponentAdded:
		return e.transport.AddCanvasComponent(e.ctx, e.room, typed.PageID, typed.Component)
	case ChildComponentAdded:
		return e.transport.AddChildComponent(e.ctx, e.room, typed.ParentID, typed.Child, typed.PageID)
	case ComponentRemoved:
		return e.transport.RemoveCanvasComponent(e.ctx, e.room, typed.PageID, typed.ComponentID)
	case ComponentMoved:
		return e.transport.MoveComponent(e.ctx, e.room, typed.PageID, typed.ComponentID, typed.Position)
	case ComponentPropertiesUpdated:
		return e.transport.UpdateComponentProperties(e.ctx, e.room, typed.PageID, typed.ComponentID, typed.Patch)
	case ComponentSizeReset:
		return e.transport.ResetComponentSize(e.ctx, e.room, typed.PageID, typed.ComponentID)
	default:
		return fmt.Errorf("collab: %s is not emitted by clients", mutation.Name())
	}
}
