package transport

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
)

// TypeJoinRoom is the control message a client sends before any mutation.
const TypeJoinRoom = "joinRoom"

var (
	// ErrUnknownMessageType indicates an envelope type outside the room protocol.
	ErrUnknownMessageType = errors.New("transport: unknown message type")
	// ErrMalformedMessage indicates an envelope that could not be decoded.
	ErrMalformedMessage = errors.New("transport: malformed message")
)

type envelope[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type envelopeHeader struct {
	Type string `json:"type"`
}

// JoinRequest announces a participant to a room.
type JoinRequest struct {
	RoomCode canvas.RoomCode
	User     collab.User
}

// Message is one decoded envelope: either a room mutation or a join request.
// Rejected lists property updates that were dropped while decoding.
type Message struct {
	Type     string
	Mutation collab.Mutation
	Join     *JoinRequest
	Rejected []error
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
}

type pagesPayload struct {
	Pages []canvas.PageWire `json:"pages"`
}

type pagePayload struct {
	Page canvas.PageWire `json:"page"`
}

type pageIDPayload struct {
	PageID string `json:"pageId"`
}

type componentPayload struct {
	PageID    string               `json:"pageId"`
	Component canvas.ComponentWire `json:"component"`
}

type childPayload struct {
	PageID   string               `json:"pageId"`
	ParentID string               `json:"parentId"`
	Child    canvas.ComponentWire `json:"childComponent"`
}

type updatePayload struct {
	PageID      string         `json:"pageId"`
	ComponentID string         `json:"componentId"`
	Updates     map[string]any `json:"updates"`
}

type positionPayload struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	UserID string  `json:"userId,omitempty"`
}

type movePayload struct {
	PageID      string          `json:"pageId"`
	ComponentID string          `json:"componentId"`
	NewPosition positionPayload `json:"newPosition"`
}

// componentRefPayload names one component; used by removals and size resets.
type componentRefPayload struct {
	PageID      string `json:"pageId"`
	ComponentID string `json:"componentId"`
}

type usersPayload struct {
	Users []collab.User `json:"users"`
}

// EncodeMutation serializes a mutation into its envelope.
func EncodeMutation(codec Codec, mutation collab.Mutation) ([]byte, error) {
	name := string(mutation.Name())
	switch typed := mutation.(type) {
	case collab.InitialCanvasLoad:
		return codec.Marshal(envelope[pagesPayload]{Type: name, Payload: pagesPayload{Pages: canvas.PagesToWire(typed.Pages)}})
	case collab.PageAdded:
		return codec.Marshal(envelope[pagePayload]{Type: name, Payload: pagePayload{Page: typed.Page.ToWire()}})
	case collab.PageRemoved:
		return codec.Marshal(envelope[pageIDPayload]{Type: name, Payload: pageIDPayload{PageID: typed.PageID.String()}})
	case collab.ComponentAdded:
		return codec.Marshal(envelope[componentPayload]{Type: name, Payload: componentPayload{
			PageID:    typed.PageID.String(),
			Component: typed.Component.ToWire(),
		}})
	case collab.ChildComponentAdded:
		return codec.Marshal(envelope[childPayload]{Type: name, Payload: childPayload{
			PageID:   typed.PageID.String(),
			ParentID: typed.ParentID.String(),
			Child:    typed.Child.ToWire(),
		}})
	case collab.ComponentPropertiesUpdated:
		return codec.Marshal(envelope[updatePayload]{Type: name, Payload: updatePayload{
			PageID:      typed.PageID.String(),
			ComponentID: typed.ComponentID.String(),
			Updates:     typed.Patch.Map(),
		}})
	case collab.ComponentMoved:
		return codec.Marshal(envelope[movePayload]{Type: name, Payload: movePayload{
			PageID:      typed.PageID.String(),
			ComponentID: typed.ComponentID.String(),
			NewPosition: positionPayload{Left: typed.Position.Left, Top: typed.Position.Top, UserID: typed.Position.UserID},
		}})
	case collab.ComponentRemoved:
		return codec.Marshal(envelope[componentRefPayload]{Type: name, Payload: componentRefPayload{
			PageID:      typed.PageID.String(),
			ComponentID: typed.ComponentID.String(),
		}})
	case collab.ComponentSizeReset:
		return codec.Marshal(envelope[componentRefPayload]{Type: name, Payload: componentRefPayload{
			PageID:      typed.PageID.String(),
			ComponentID: typed.ComponentID.String(),
		}})
	case collab.UsersListUpdated:
		users := typed.Users
		if users == nil {
			users = []collab.User{}
		}
		return codec.Marshal(envelope[usersPayload]{Type: name, Payload: usersPayload{Users: users}})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, mutation)
	}
}

// EncodeJoin serializes a join request.
func EncodeJoin(codec Codec, join JoinRequest) ([]byte, error) {
	return codec.Marshal(envelope[joinPayload]{Type: TypeJoinRoom, Payload: joinPayload{
		RoomCode: join.RoomCode.String(),
		UserID:   join.User.ID,
		Name:     join.User.Name,
	}})
}

// Decode parses one envelope. Identifiers are validated; unknown property paths are
// dropped from the patch and reported in Message.Rejected.
func Decode(codec Codec, data []byte) (Message, error) {
	var header envelopeHeader
	if err := codec.Unmarshal(data, &header); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	message := Message{Type: header.Type}
	var err error
	switch collab.EventName(header.Type) {
	case collab.EventInitialCanvasLoad:
		message.Mutation, err = decodeWith(codec, data, decodeInitialLoad)
	case collab.EventPageAdded:
		message.Mutation, err = decodeWith(codec, data, decodePageAdded)
	case collab.EventPageRemoved:
		message.Mutation, err = decodeWith(codec, data, decodePageRemoved)
	case collab.EventComponentAdded:
		message.Mutation, err = decodeWith(codec, data, decodeComponentAdded)
	case collab.EventChildComponentAdded:
		message.Mutation, err = decodeWith(codec, data, decodeChildAdded)
	case collab.EventComponentPropertiesUpdated:
		message.Mutation, err = decodeWith(codec, data, func(payload updatePayload) (collab.Mutation, error) {
			mutation, rejected, decodeErr := decodePropertiesUpdated(payload)
			message.Rejected = rejected
			return mutation, decodeErr
		})
	case collab.EventComponentMoved:
		message.Mutation, err = decodeWith(codec, data, decodeMoved)
	case collab.EventComponentRemoved:
		message.Mutation, err = decodeWith(codec, data, decodeRemoved)
	case collab.EventComponentSizeReset:
		message.Mutation, err = decodeWith(codec, data, decodeSizeReset)
	case collab.EventUsersListUpdate:
		message.Mutation, err = decodeWith(codec, data, func(payload usersPayload) (collab.Mutation, error) {
			return collab.UsersListUpdated{Users: payload.Users}, nil
		})
	default:
		if header.Type != TypeJoinRoom {
			return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, header.Type)
		}
		var join envelope[joinPayload]
		if err := codec.Unmarshal(data, &join); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		request, joinErr := decodeJoin(join.Payload)
		if joinErr != nil {
			return Message{}, joinErr
		}
		message.Join = &request
		return message, nil
	}
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

func decodeWith[T any](codec Codec, data []byte, convert func(T) (collab.Mutation, error)) (collab.Mutation, error) {
	var decoded envelope[T]
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return convert(decoded.Payload)
}

func decodeJoin(payload joinPayload) (JoinRequest, error) {
	code, err := canvas.NewRoomCode(payload.RoomCode)
	if err != nil {
		return JoinRequest{}, err
	}
	if payload.UserID == "" {
		return JoinRequest{}, fmt.Errorf("%w: missing userId", ErrMalformedMessage)
	}
	return JoinRequest{RoomCode: code, User: collab.User{ID: payload.UserID, Name: payload.Name}}, nil
}

func decodeInitialLoad(payload pagesPayload) (collab.Mutation, error) {
	pages, err := canvas.PagesFromWire(payload.Pages)
	if err != nil {
		return nil, err
	}
	return collab.InitialCanvasLoad{Pages: pages}, nil
}

func decodePageAdded(payload pagePayload) (collab.Mutation, error) {
	page, err := canvas.PageFromWire(payload.Page)
	if err != nil {
		return nil, err
	}
	return collab.PageAdded{Page: page}, nil
}

func decodePageRemoved(payload pageIDPayload) (collab.Mutation, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, err
	}
	return collab.PageRemoved{PageID: pageID}, nil
}

func decodeComponentAdded(payload componentPayload) (collab.Mutation, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, err
	}
	component, err := canvas.ComponentFromWire(payload.Component)
	if err != nil {
		return nil, err
	}
	return collab.ComponentAdded{PageID: pageID, Component: component}, nil
}

func decodeChildAdded(payload childPayload) (collab.Mutation, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, err
	}
	parentID, err := canvas.NewComponentID(payload.ParentID)
	if err != nil {
		return nil, err
	}
	child, err := canvas.ComponentFromWire(payload.Child)
	if err != nil {
		return nil, err
	}
	child.ParentID = parentID
	return collab.ChildComponentAdded{PageID: pageID, ParentID: parentID, Child: child}, nil
}

func decodePropertiesUpdated(payload updatePayload) (collab.Mutation, []error, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, nil, err
	}
	componentID, err := canvas.NewComponentID(payload.ComponentID)
	if err != nil {
		return nil, nil, err
	}
	patch, rejected := canvas.ParsePatch(payload.Updates)
	return collab.ComponentPropertiesUpdated{PageID: pageID, ComponentID: componentID, Patch: patch}, rejected, nil
}

func decodeMoved(payload movePayload) (collab.Mutation, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, err
	}
	componentID, err := canvas.NewComponentID(payload.ComponentID)
	if err != nil {
		return nil, err
	}
	return collab.ComponentMoved{
		PageID:      pageID,
		ComponentID: componentID,
		Position: collab.Position{
			Left:   payload.NewPosition.Left,
			Top:    payload.NewPosition.Top,
			UserID: payload.NewPosition.UserID,
		},
	}, nil
}

func decodeRemoved(payload componentRefPayload) (collab.Mutation, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, err
	}
	componentID, err := canvas.NewComponentID(payload.ComponentID)
	if err != nil {
		return nil, err
	}
	return collab.ComponentRemoved{PageID: pageID, ComponentID: componentID}, nil
}

func decodeSizeReset(payload componentRefPayload) (collab.Mutation, error) {
	pageID, err := canvas.NewPageID(payload.PageID)
	if err != nil {
		return nil, err
	}
	componentID, err := canvas.NewComponentID(payload.ComponentID)
	if err != nil {
		return nil, err
	}
	return collab.ComponentSizeReset{PageID: pageID, ComponentID: componentID}, nil
}
