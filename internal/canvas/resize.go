package canvas

import "math"

// ResizePadding is the margin kept between a parent edge and its furthest child.
const ResizePadding = 10.0

// Resize is an engine-driven size change that must be propagated to peers.
type Resize struct {
	ID     ComponentID
	Width  float64
	Height float64
}

// Ledger tracks, per parent, the largest size it has ever been required to reach
// and the size it had before its first child was added. It lives as long as an
// editing session and is never persisted.
type Ledger struct {
	maxSize  map[ComponentID]Size
	original map[ComponentID]Size
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		maxSize:  make(map[ComponentID]Size),
		original: make(map[ComponentID]Size),
	}
}

// MaxSize returns the high-water mark of a parent.
func (l *Ledger) MaxSize(id ComponentID) (Size, bool) {
	size, ok := l.maxSize[id]
	return size, ok
}

// OriginalSize returns the baseline captured before the first child add.
func (l *Ledger) OriginalSize(id ComponentID) (Size, bool) {
	size, ok := l.original[id]
	return size, ok
}

// RecordOriginal captures the parent's current size the first time it receives a child.
func (l *Ledger) RecordOriginal(parent *Component) {
	if parent == nil {
		return
	}
	if _, ok := l.original[parent.ID]; ok {
		return
	}
	l.original[parent.ID] = parent.Size()
}

// Forget drops every entry of the subtree rooted at component.
func (l *Ledger) Forget(component *Component) {
	if component == nil {
		return
	}
	component.Walk(func(node *Component) bool {
		delete(l.maxSize, node.ID)
		delete(l.original, node.ID)
		return true
	})
}

// RequiredSize is the bounding box of the direct children plus ResizePadding.
// A parent without children requires nothing.
func RequiredSize(parent *Component) Size {
	if parent == nil || len(parent.Children) == 0 {
		return Size{}
	}
	required := Size{}
	for _, child := range parent.Children {
		left, top := child.Offset()
		size := child.Size()
		required.Width = math.Max(required.Width, left+size.Width)
		required.Height = math.Max(required.Height, top+size.Height)
	}
	required.Width += ResizePadding
	required.Height += ResizePadding
	return required
}

// GrowParent raises the parent's high-water mark to fit its children and grows the
// parent to the mark on any axis where it falls short. It never shrinks anything.
func (l *Ledger) GrowParent(doc *Document, parentID ComponentID) (Resize, bool) {
	parent, ok := doc.FindByID(parentID)
	if !ok {
		return Resize{}, false
	}
	current := parent.Size()
	mark, seeded := l.maxSize[parentID]
	if !seeded {
		mark = current
	}
	required := RequiredSize(parent)
	mark = Size{
		Width:  math.Max(mark.Width, required.Width),
		Height: math.Max(mark.Height, required.Height),
	}
	l.maxSize[parentID] = mark

	if current.Width >= mark.Width && current.Height >= mark.Height {
		return Resize{}, false
	}
	grown := Size{
		Width:  math.Max(current.Width, mark.Width),
		Height: math.Max(current.Height, mark.Height),
	}
	parent.SetSize(grown)
	return Resize{ID: parentID, Width: grown.Width, Height: grown.Height}, true
}

// ShrinkChildren clamps each direct child so that its frame stays inside the parent
// minus ResizePadding. Clamped dimensions are floored at zero.
func (l *Ledger) ShrinkChildren(doc *Document, parentID ComponentID) []Resize {
	parent, ok := doc.FindByID(parentID)
	if !ok {
		return nil
	}
	bounds := parent.Size()
	var resizes []Resize
	for _, child := range parent.Children {
		left, top := child.Offset()
		size := child.Size()
		clamped := size
		if left+size.Width > bounds.Width-ResizePadding {
			clamped.Width = math.Max(0, bounds.Width-ResizePadding-left)
		}
		if top+size.Height > bounds.Height-ResizePadding {
			clamped.Height = math.Max(0, bounds.Height-ResizePadding-top)
		}
		if clamped == size {
			continue
		}
		child.SetSize(clamped)
		resizes = append(resizes, Resize{ID: child.ID, Width: clamped.Width, Height: clamped.Height})
	}
	return resizes
}

// ResetToOriginal restores the parent to its pre-growth baseline when the current
// children fit inside it, and lowers the high-water mark to that baseline.
func (l *Ledger) ResetToOriginal(doc *Document, parentID ComponentID) (Resize, bool) {
	parent, ok := doc.FindByID(parentID)
	if !ok {
		return Resize{}, false
	}
	original, ok := l.original[parentID]
	if !ok {
		return Resize{}, false
	}
	required := RequiredSize(parent)
	if required.Width > original.Width || required.Height > original.Height {
		return Resize{}, false
	}
	l.maxSize[parentID] = original
	parent.SetSize(original)
	return Resize{ID: parentID, Width: original.Width, Height: original.Height}, true
}
