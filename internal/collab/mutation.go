package collab

import "github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"

// EventName is the wire name of a room event.
type EventName string

const (
	EventInitialCanvasLoad          EventName = "initialCanvasLoad"
	EventPageAdded                  EventName = "pageAdded"
	EventPageRemoved                EventName = "pageRemoved"
	EventComponentAdded             EventName = "componentAdded"
	EventChildComponentAdded        EventName = "childComponentAdded"
	EventComponentPropertiesUpdated EventName = "componentPropertiesUpdated"
	EventComponentMoved             EventName = "componentMoved"
	EventComponentRemoved           EventName = "componentRemoved"
	EventComponentSizeReset         EventName = "componentSizeReset"
	EventUsersListUpdate            EventName = "usersListUpdate"
)

// Mutation is one room event. The concrete types below are the only implementations.
type Mutation interface {
	Name() EventName
}

// User is a participant as shown in the room presence list.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Position carries absolute offsets and the user who dragged the component.
type Position struct {
	Left   float64
	Top    float64
	UserID string
}

// InitialCanvasLoad replaces the whole document, sent once on join.
type InitialCanvasLoad struct {
	Pages []*canvas.Page
}

// PageAdded appends a page unless it already exists.
type PageAdded struct {
	Page *canvas.Page
}

// PageRemoved drops a page and everything on it.
type PageRemoved struct {
	PageID canvas.PageID
}

// ComponentAdded appends a root component to a page unless the id is already present.
type ComponentAdded struct {
	PageID    canvas.PageID
	Component *canvas.Component
}

// ChildComponentAdded appends a component to a parent's children.
type ChildComponentAdded struct {
	PageID   canvas.PageID
	ParentID canvas.ComponentID
	Child    *canvas.Component
}

// ComponentPropertiesUpdated patches a component.
type ComponentPropertiesUpdated struct {
	PageID      canvas.PageID
	ComponentID canvas.ComponentID
	Patch       canvas.Patch
}

// ComponentMoved sets absolute offsets without triggering auto-resize.
type ComponentMoved struct {
	PageID      canvas.PageID
	ComponentID canvas.ComponentID
	Position    Position
}

// ComponentRemoved removes a component and its subtree.
type ComponentRemoved struct {
	PageID      canvas.PageID
	ComponentID canvas.ComponentID
}

// ComponentSizeReset asks every replica to restore an auto-grown parent to the size it
// had before its first child, lowering the high-water mark with it.
type ComponentSizeReset struct {
	PageID      canvas.PageID
	ComponentID canvas.ComponentID
}

// UsersListUpdated replaces the presence list.
type UsersListUpdated struct {
	Users []User
}

func (InitialCanvasLoad) Name() EventName          { return EventInitialCanvasLoad }
func (PageAdded) Name() EventName                  { return EventPageAdded }
func (PageRemoved) Name() EventName                { return EventPageRemoved }
func (ComponentAdded) Name() EventName             { return EventComponentAdded }
func (ChildComponentAdded) Name() EventName        { return EventChildComponentAdded }
func (ComponentPropertiesUpdated) Name() EventName { return EventComponentPropertiesUpdated }
func (ComponentMoved) Name() EventName             { return EventComponentMoved }
func (ComponentRemoved) Name() EventName           { return EventComponentRemoved }
func (ComponentSizeReset) Name() EventName         { return EventComponentSizeReset }
func (UsersListUpdated) Name() EventName           { return EventUsersListUpdate }

// Structural reports whether the mutation changes the persisted document.
func Structural(mutation Mutation) bool {
	switch mutation.(type) {
	case UsersListUpdated, InitialCanvasLoad:
		return false
	default:
		return true
	}
}

// CloneMutation deep-copies the tree payload of a mutation so that it can be handed
// to another owner without sharing nodes.
func CloneMutation(mutation Mutation) Mutation {
	switch typed := mutation.(type) {
	case InitialCanvasLoad:
		pages := make([]*canvas.Page, 0, len(typed.Pages))
		for _, page := range typed.Pages {
			pages = append(pages, page.Clone())
		}
		return InitialCanvasLoad{Pages: pages}
	case PageAdded:
		return PageAdded{Page: typed.Page.Clone()}
	case ComponentAdded:
		typed.Component = typed.Component.Clone()
		return typed
	case ChildComponentAdded:
		typed.Child = typed.Child.Clone()
		return typed
	case ComponentPropertiesUpdated:
		typed.Patch = append(canvas.Patch(nil), typed.Patch...)
		return typed
	case UsersListUpdated:
		return UsersListUpdated{Users: append([]User(nil), typed.Users...)}
	default:
		return mutation
	}
}
