package canvas

import (
	"fmt"
	"testing"
)

type sequenceIDProvider struct {
	prefix string
	next   int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("%s-%d", p.prefix, p.next), nil
}

func box(id string, kind Kind, left, top, width, height float64) *Component {
	component := NewComponent(ComponentID(id), kind)
	component.Left = floatPtr(left)
	component.Top = floatPtr(top)
	component.Width = floatPtr(width)
	component.Height = floatPtr(height)
	return component
}

func mustFind(t *testing.T, doc *Document, id string) *Component {
	t.Helper()
	component, ok := doc.FindByID(ComponentID(id))
	if !ok {
		t.Fatalf("expected component %s to exist", id)
	}
	return component
}

func newSinglePageDocument(t *testing.T, roots ...*Component) *Document {
	t.Helper()
	page := &Page{ID: PageID("page-1"), Name: "Inicio", Components: []*Component{}}
	doc := NewDocument(page)
	for _, root := range roots {
		if !doc.InsertRoot(page.ID, root) {
			t.Fatalf("failed to insert root %s", root.ID)
		}
	}
	return doc
}
