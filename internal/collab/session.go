package collab

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"go.uber.org/zap"
)

const defaultMaxSettleSteps = 4096

var (
	errMissingIDProvider = errors.New("id provider is required")
	errMissingRoomCode   = errors.New("room code is required")
	// ErrClipboardEmpty indicates a paste without a prior copy or cut.
	ErrClipboardEmpty = errors.New("collab: clipboard is empty")
	// ErrPasteIntoCut indicates a paste target inside the component being cut.
	ErrPasteIntoCut = errors.New("collab: cannot paste into the cut component")
	noOpLogger      = zap.NewNop()
)

// SessionConfig wires a Session.
type SessionConfig struct {
	RoomCode       canvas.RoomCode
	Emitter        Emitter
	IDProvider     canvas.IDProvider
	Catalog        *canvas.Catalog
	Logger         *zap.Logger
	MaxSettleSteps int
}

// ContextMenu is the open right-click menu of the local user.
type ContextMenu struct {
	ComponentID canvas.ComponentID
	Left        float64
	Top         float64
}

// Point is a paste target in parent coordinates.
type Point struct {
	X float64
	Y float64
}

// Outcome reports what Apply did. FollowUps are the engine-driven resizes produced
// by the settle pass; they must reach every peer.
type Outcome struct {
	Applied   bool
	FollowUps []Mutation
}

// Session is the editing state of one participant (or of the room authority) for one room.
// It is owned by a single goroutine.
type Session struct {
	room        canvas.RoomCode
	doc         *canvas.Document
	ledger      *canvas.Ledger
	resolver    *canvas.Resolver
	catalog     *canvas.Catalog
	ids         canvas.IDProvider
	emitter     Emitter
	logger      *zap.Logger
	maxSettle   int
	currentPage int
	selected    canvas.ComponentID
	contextMenu *ContextMenu
	clipboard   *canvas.Component
	cutSource   canvas.ComponentID
	users       []User
}

// NewSession creates an empty session for a room.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.RoomCode == "" {
		return nil, errMissingRoomCode
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	catalog := cfg.Catalog
	if catalog == nil {
		loaded, err := canvas.LoadCatalog()
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = discardEmitter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	maxSettle := cfg.MaxSettleSteps
	if maxSettle <= 0 {
		maxSettle = defaultMaxSettleSteps
	}
	doc := canvas.NewDocument()
	return &Session{
		room:        cfg.RoomCode,
		doc:         doc,
		ledger:      canvas.NewLedger(),
		resolver:    canvas.NewResolver(doc),
		catalog:     catalog,
		ids:         cfg.IDProvider,
		emitter:     emitter,
		logger:      logger.With(zap.String("room_code", cfg.RoomCode.String())),
		maxSettle:   maxSettle,
		currentPage: -1,
	}, nil
}

// Room returns the room code.
func (s *Session) Room() canvas.RoomCode { return s.room }

// Document exposes the live tree. Callers must stay on the owning goroutine.
func (s *Session) Document() *canvas.Document { return s.doc }

// Ledger exposes the auto-resize state.
func (s *Session) Ledger() *canvas.Ledger { return s.ledger }

// Resolver returns the layout resolver bound to the document.
func (s *Session) Resolver() *canvas.Resolver { return s.resolver }

// Snapshot deep-copies the pages.
func (s *Session) Snapshot() []*canvas.Page { return s.doc.Snapshot() }

// Users returns the last presence list.
func (s *Session) Users() []User { return append([]User(nil), s.users...) }

// CurrentPage returns the index of the page being edited, -1 when there are no pages.
func (s *Session) CurrentPage() int { return s.currentPage }

// SetCurrentPage selects a page by index; out of range indexes are clamped.
func (s *Session) SetCurrentPage(index int) {
	s.currentPage = index
	s.clampCurrentPage()
}

// Selected returns the selected component id, empty when nothing is selected.
func (s *Session) Selected() canvas.ComponentID { return s.selected }

// Select marks a component as selected. Unknown ids clear the selection.
func (s *Session) Select(id canvas.ComponentID) {
	if _, ok := s.doc.FindByID(id); !ok {
		s.selected = ""
		return
	}
	s.selected = id
}

// OpenContextMenu opens the menu for a component.
func (s *Session) OpenContextMenu(id canvas.ComponentID, left, top float64) {
	s.contextMenu = &ContextMenu{ComponentID: id, Left: left, Top: top}
}

// CloseContextMenu closes the menu.
func (s *Session) CloseContextMenu() { s.contextMenu = nil }

// ContextMenu returns the open menu.
func (s *Session) ContextMenu() (ContextMenu, bool) {
	if s.contextMenu == nil {
		return ContextMenu{}, false
	}
	return *s.contextMenu, true
}

func (s *Session) clampCurrentPage() {
	count := len(s.doc.Pages())
	switch {
	case count == 0:
		s.currentPage = -1
	case s.currentPage < 0:
		s.currentPage = 0
	case s.currentPage >= count:
		s.currentPage = count - 1
	}
}

// Apply merges one mutation into the local tree and settles auto-resize.
// Missing targets make the mutation a no-op.
func (s *Session) Apply(mutation Mutation) Outcome {
	var queue settleQueue
	applied := s.apply(mutation, &queue)
	if !applied {
		s.logger.Debug("mutation skipped", zap.String("event", string(mutation.Name())))
		return Outcome{}
	}
	return Outcome{Applied: true, FollowUps: s.settle(&queue)}
}

func (s *Session) apply(mutation Mutation, queue *settleQueue) bool {
	switch typed := mutation.(type) {
	case InitialCanvasLoad:
		s.doc.Replace(typed.Pages)
		s.ledger = canvas.NewLedger()
		s.selected = ""
		s.contextMenu = nil
		s.currentPage = 0
		s.clampCurrentPage()
		return true

	case PageAdded:
		if !s.doc.AddPage(typed.Page) {
			return false
		}
		s.clampCurrentPage()
		return true

	case PageRemoved:
		page, ok := s.doc.Page(typed.PageID)
		if !ok {
			return false
		}
		for _, root := range page.Components {
			s.forget(root)
		}
		s.doc.RemovePage(typed.PageID)
		s.clampCurrentPage()
		return true

	case ComponentAdded:
		if typed.Component == nil {
			return false
		}
		if _, exists := s.doc.FindByID(typed.Component.ID); exists {
			return false
		}
		return s.doc.InsertRoot(typed.PageID, typed.Component)

	case ChildComponentAdded:
		if typed.Child == nil {
			return false
		}
		if _, exists := s.doc.FindByID(typed.Child.ID); exists {
			return false
		}
		parent, ok := s.doc.FindByID(typed.ParentID)
		if !ok {
			return false
		}
		s.ledger.RecordOriginal(parent)
		if !s.doc.InsertChild(typed.ParentID, typed.Child) {
			return false
		}
		queue.push(settleStep{kind: stepGrow, id: typed.ParentID})
		return true

	case ComponentPropertiesUpdated:
		component, ok := s.onPage(typed.PageID, typed.ComponentID)
		if !ok {
			return false
		}
		change, errs := typed.Patch.Apply(component)
		for _, err := range errs {
			s.logger.Warn("property update skipped",
				zap.String("component_id", typed.ComponentID.String()),
				zap.Error(err))
		}
		if change.Grew() && component.ParentID != "" {
			queue.push(settleStep{kind: stepGrow, id: component.ParentID})
		}
		if change.Shrank() && len(component.Children) > 0 {
			queue.push(settleStep{kind: stepShrink, id: component.ID})
		}
		return true

	case ComponentMoved:
		component, ok := s.onPage(typed.PageID, typed.ComponentID)
		if !ok {
			return false
		}
		left, top := typed.Position.Left, typed.Position.Top
		component.Left = &left
		component.Top = &top
		return true

	case ComponentRemoved:
		component, ok := s.onPage(typed.PageID, typed.ComponentID)
		if !ok {
			return false
		}
		if s.selected != "" && containsID(component, s.selected) {
			s.selected = ""
		}
		s.contextMenu = nil
		s.forget(component)
		return s.doc.Remove(typed.ComponentID)

	case ComponentSizeReset:
		if _, ok := s.onPage(typed.PageID, typed.ComponentID); !ok {
			return false
		}
		queue.push(settleStep{kind: stepReset, id: typed.ComponentID})
		return true

	case UsersListUpdated:
		s.users = append([]User(nil), typed.Users...)
		return true

	default:
		s.logger.Warn("unsupported mutation", zap.String("type", fmt.Sprintf("%T", mutation)))
		return false
	}
}

// onPage finds a component that lives on the given page.
func (s *Session) onPage(pageID canvas.PageID, id canvas.ComponentID) (*canvas.Component, bool) {
	component, ok := s.doc.FindByID(id)
	if !ok {
		return nil, false
	}
	if owner, _ := s.doc.PageOf(id); owner != pageID {
		return nil, false
	}
	return component, true
}

func (s *Session) forget(component *canvas.Component) {
	s.ledger.Forget(component)
}

func containsID(root *canvas.Component, id canvas.ComponentID) bool {
	found := false
	root.Walk(func(node *canvas.Component) bool {
		found = node.ID == id
		return !found
	})
	return found
}
