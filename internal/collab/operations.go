package collab

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
)

const defaultPasteOffset = 1

// commit applies a locally authored mutation and emits it followed by its resizes.
func (s *Session) commit(mutation Mutation) bool {
	outcome := s.Apply(mutation)
	if !outcome.Applied {
		return false
	}
	s.emitter.Emit(CloneMutation(mutation))
	for _, followUp := range outcome.FollowUps {
		s.emitter.Emit(followUp)
	}
	return true
}

func (s *Session) newComponentID() (canvas.ComponentID, error) {
	raw, err := s.ids.NewID()
	if err != nil {
		return "", err
	}
	return canvas.NewComponentID(raw)
}

// AddPage appends a new empty page and makes it current. An empty name becomes "Page N".
func (s *Session) AddPage(name string) (*canvas.Page, error) {
	raw, err := s.ids.NewID()
	if err != nil {
		return nil, err
	}
	pageID, err := canvas.NewPageID(raw)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("Page %d", len(s.doc.Pages())+1)
	}
	page := &canvas.Page{ID: pageID, Name: name, Components: []*canvas.Component{}}
	if !s.commit(PageAdded{Page: page}) {
		return nil, fmt.Errorf("collab: page %s already exists", pageID)
	}
	s.currentPage = s.doc.PageIndex(pageID)
	return page, nil
}

// RemovePage drops a page.
func (s *Session) RemovePage(pageID canvas.PageID) error {
	if !s.commit(PageRemoved{PageID: pageID}) {
		return fmt.Errorf("%w: %s", canvas.ErrPageNotFound, pageID)
	}
	return nil
}

// AddComponent inserts a prepared component as a page root.
func (s *Session) AddComponent(pageID canvas.PageID, component *canvas.Component) error {
	if _, ok := s.doc.Page(pageID); !ok {
		return fmt.Errorf("%w: %s", canvas.ErrPageNotFound, pageID)
	}
	if !s.commit(ComponentAdded{PageID: pageID, Component: component}) {
		return fmt.Errorf("collab: component %s already exists", component.ID)
	}
	return nil
}

// AddWidget drops a palette widget at the given canvas offsets.
func (s *Session) AddWidget(pageID canvas.PageID, kind canvas.Kind, left, top float64) (*canvas.Component, error) {
	if _, ok := s.doc.Page(pageID); !ok {
		return nil, fmt.Errorf("%w: %s", canvas.ErrPageNotFound, pageID)
	}
	id, err := s.newComponentID()
	if err != nil {
		return nil, err
	}
	component, err := s.catalog.New(kind, id, false)
	if err != nil {
		return nil, err
	}
	component.Left = &left
	component.Top = &top
	if !s.commit(ComponentAdded{PageID: pageID, Component: component}) {
		return nil, fmt.Errorf("collab: component %s was not added", id)
	}
	return component, nil
}

// AddChild nests a palette widget inside a parent using the nested defaults.
func (s *Session) AddChild(pageID canvas.PageID, parentID canvas.ComponentID, kind canvas.Kind) (*canvas.Component, error) {
	if _, ok := s.doc.FindByID(parentID); !ok {
		return nil, fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, parentID)
	}
	id, err := s.newComponentID()
	if err != nil {
		return nil, err
	}
	child, err := s.catalog.New(kind, id, true)
	if err != nil {
		return nil, err
	}
	child.ParentID = parentID
	if !s.commit(ChildComponentAdded{PageID: pageID, ParentID: parentID, Child: child}) {
		return nil, fmt.Errorf("collab: component %s was not added", id)
	}
	return child, nil
}

// UpdateProperties applies a patch to a component.
func (s *Session) UpdateProperties(pageID canvas.PageID, id canvas.ComponentID, patch canvas.Patch) error {
	if !s.commit(ComponentPropertiesUpdated{PageID: pageID, ComponentID: id, Patch: patch}) {
		return fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, id)
	}
	return nil
}

// Move sets the absolute offsets of a dragged component.
func (s *Session) Move(pageID canvas.PageID, id canvas.ComponentID, left, top float64, userID string) error {
	moved := ComponentMoved{
		PageID:      pageID,
		ComponentID: id,
		Position:    Position{Left: left, Top: top, UserID: userID},
	}
	if !s.commit(moved) {
		return fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, id)
	}
	return nil
}

// RemoveComponent removes a component and its subtree.
func (s *Session) RemoveComponent(pageID canvas.PageID, id canvas.ComponentID) error {
	if !s.commit(ComponentRemoved{PageID: pageID, ComponentID: id}) {
		return fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, id)
	}
	return nil
}

// Copy places a deep copy of the component on the clipboard.
func (s *Session) Copy(id canvas.ComponentID) error {
	component, ok := s.doc.FindByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, id)
	}
	s.clipboard = component.Clone()
	s.cutSource = ""
	s.contextMenu = nil
	return nil
}

// Cut places a deep copy of the component on the clipboard. The component stays in
// place until the clipboard is pasted.
func (s *Session) Cut(id canvas.ComponentID) error {
	if err := s.Copy(id); err != nil {
		return err
	}
	s.cutSource = id
	return nil
}

// HasClipboard reports whether Paste has something to insert.
func (s *Session) HasClipboard() bool { return s.clipboard != nil }

// Paste inserts a fresh-id copy of the clipboard. With a parent the copy becomes its
// child; otherwise it becomes a root of the page. The copy lands at the point, or at
// (1,1) without one. Pasting a cut removes the cut component and empties the clipboard.
func (s *Session) Paste(pageID canvas.PageID, parentID canvas.ComponentID, at *Point) (*canvas.Component, error) {
	if s.clipboard == nil {
		return nil, ErrClipboardEmpty
	}
	pasted, err := canvas.Copy(s.clipboard, s.ids)
	if err != nil {
		return nil, err
	}
	left, top := float64(defaultPasteOffset), float64(defaultPasteOffset)
	if at != nil {
		left, top = at.X, at.Y
	}
	pasted.Left = &left
	pasted.Top = &top
	s.contextMenu = nil

	if parentID == "" {
		if _, ok := s.doc.Page(pageID); !ok {
			return nil, fmt.Errorf("%w: %s", canvas.ErrPageNotFound, pageID)
		}
		if !s.commit(ComponentAdded{PageID: pageID, Component: pasted}) {
			return nil, fmt.Errorf("collab: component %s was not pasted", pasted.ID)
		}
		s.finishCut()
		return pasted, nil
	}
	if _, ok := s.doc.FindByID(parentID); !ok {
		return nil, fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, parentID)
	}
	if s.cutSource != "" {
		if source, ok := s.doc.FindByID(s.cutSource); ok && containsID(source, parentID) {
			return nil, fmt.Errorf("%w: %s is inside the cut component", ErrPasteIntoCut, parentID)
		}
	}
	pasted.ParentID = parentID
	if !s.commit(ChildComponentAdded{PageID: pageID, ParentID: parentID, Child: pasted}) {
		return nil, fmt.Errorf("collab: component %s was not pasted", pasted.ID)
	}
	s.finishCut()
	return pasted, nil
}

// finishCut removes the cut component once its copy has landed.
func (s *Session) finishCut() {
	if s.cutSource == "" {
		return
	}
	source := s.cutSource
	s.cutSource = ""
	s.clipboard = nil
	pageID, ok := s.doc.PageOf(source)
	if !ok {
		return
	}
	s.commit(ComponentRemoved{PageID: pageID, ComponentID: source})
}

// ResetToOriginal shrinks an auto-grown parent back to its size before the first child
// was added, when its children still fit. Every replica applies the reset to its own
// ledger, so a later child add does not regrow the parent to the old mark.
func (s *Session) ResetToOriginal(pageID canvas.PageID, id canvas.ComponentID) (bool, error) {
	component, ok := s.doc.FindByID(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", canvas.ErrComponentNotFound, id)
	}
	original, ok := s.ledger.OriginalSize(id)
	if !ok {
		return false, nil
	}
	required := canvas.RequiredSize(component)
	if required.Width > original.Width || required.Height > original.Height {
		return false, nil
	}
	if !s.commit(ComponentSizeReset{PageID: pageID, ComponentID: id}) {
		return false, fmt.Errorf("%w: %s on page %s", canvas.ErrComponentNotFound, id, pageID)
	}
	return true, nil
}
