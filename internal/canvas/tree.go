package canvas

// Document is the ordered page forest of one room, with a flat index over every component.
// It is not safe for concurrent use; a single editing session owns it.
type Document struct {
	pages  []*Page
	index  map[ComponentID]*Component
	pageOf map[ComponentID]PageID
}

// NewDocument builds a document over the given pages. The pages are owned by the document afterwards.
func NewDocument(pages ...*Page) *Document {
	doc := &Document{}
	doc.Replace(pages)
	return doc
}

// Replace swaps the whole page list and rebuilds the index.
func (d *Document) Replace(pages []*Page) {
	d.pages = make([]*Page, 0, len(pages))
	for _, page := range pages {
		if page == nil {
			continue
		}
		if page.Components == nil {
			page.Components = []*Component{}
		}
		d.pages = append(d.pages, page)
	}
	d.reindex()
}

func (d *Document) reindex() {
	d.index = make(map[ComponentID]*Component)
	d.pageOf = make(map[ComponentID]PageID)
	for _, page := range d.pages {
		for _, root := range page.Components {
			d.indexSubtree(page.ID, root)
		}
	}
}

// indexSubtree keeps the first pre-order match for duplicated ids.
func (d *Document) indexSubtree(pageID PageID, root *Component) {
	root.Walk(func(node *Component) bool {
		if _, exists := d.index[node.ID]; !exists {
			d.index[node.ID] = node
			d.pageOf[node.ID] = pageID
		}
		return true
	})
}

func (d *Document) unindexSubtree(root *Component) {
	root.Walk(func(node *Component) bool {
		if indexed, ok := d.index[node.ID]; ok && indexed == node {
			delete(d.index, node.ID)
			delete(d.pageOf, node.ID)
		}
		return true
	})
}

// hasShadowed reports whether the detached subtree held an id that another node
// still carries but which is no longer indexed.
func (d *Document) hasShadowed(detached *Component) bool {
	missing := make(map[ComponentID]struct{})
	detached.Walk(func(node *Component) bool {
		if _, ok := d.index[node.ID]; !ok {
			missing[node.ID] = struct{}{}
		}
		return true
	})
	found := false
	for _, page := range d.pages {
		for _, root := range page.Components {
			root.Walk(func(node *Component) bool {
				if _, ok := missing[node.ID]; ok {
					found = true
				}
				return !found
			})
			if found {
				return true
			}
		}
	}
	return false
}

// Pages returns the live page list.
func (d *Document) Pages() []*Page {
	return d.pages
}

// Page returns the page with the given id.
func (d *Document) Page(id PageID) (*Page, bool) {
	index := d.PageIndex(id)
	if index < 0 {
		return nil, false
	}
	return d.pages[index], true
}

// PageIndex returns the position of the page, or -1.
func (d *Document) PageIndex(id PageID) int {
	for index, page := range d.pages {
		if page.ID == id {
			return index
		}
	}
	return -1
}

// AddPage appends a page unless one with the same id exists.
func (d *Document) AddPage(page *Page) bool {
	if page == nil || d.PageIndex(page.ID) >= 0 {
		return false
	}
	if page.Components == nil {
		page.Components = []*Component{}
	}
	d.pages = append(d.pages, page)
	for _, root := range page.Components {
		d.indexSubtree(page.ID, root)
	}
	return true
}

// RemovePage drops a page and every component it owns.
func (d *Document) RemovePage(id PageID) bool {
	index := d.PageIndex(id)
	if index < 0 {
		return false
	}
	page := d.pages[index]
	d.pages = append(d.pages[:index], d.pages[index+1:]...)
	shadowed := false
	for _, root := range page.Components {
		d.unindexSubtree(root)
		shadowed = shadowed || d.hasShadowed(root)
	}
	if shadowed {
		d.reindex()
	}
	return true
}

// FindByID returns the first component with the id in page order, pre-order.
func (d *Document) FindByID(id ComponentID) (*Component, bool) {
	component, ok := d.index[id]
	return component, ok
}

// PageOf returns the page owning the component.
func (d *Document) PageOf(id ComponentID) (PageID, bool) {
	pageID, ok := d.pageOf[id]
	return pageID, ok
}

// Parent returns the parent of a component, if it has one that is still in the tree.
func (d *Document) Parent(component *Component) (*Component, bool) {
	if component == nil || component.ParentID == "" {
		return nil, false
	}
	return d.FindByID(component.ParentID)
}

// InsertRoot appends the component to the page roots. A missing page is a no-op.
func (d *Document) InsertRoot(pageID PageID, component *Component) bool {
	page, ok := d.Page(pageID)
	if !ok || component == nil {
		return false
	}
	component.ParentID = ""
	if component.Children == nil {
		component.Children = []*Component{}
	}
	page.Components = append(page.Components, component)
	d.indexSubtree(pageID, component)
	return true
}

// InsertChild appends the component to its parent's children. A missing parent is a no-op.
func (d *Document) InsertChild(parentID ComponentID, component *Component) bool {
	parent, ok := d.FindByID(parentID)
	if !ok || component == nil {
		return false
	}
	component.ParentID = parentID
	if component.Children == nil {
		component.Children = []*Component{}
	}
	parent.Children = append(parent.Children, component)
	d.indexSubtree(d.pageOf[parentID], component)
	return true
}

// Remove splices the first component with the id out of whichever sequence holds it.
// It reports whether a component was removed.
func (d *Document) Remove(id ComponentID) bool {
	for _, page := range d.pages {
		removed, ok := removeFrom(&page.Components, id)
		if !ok {
			continue
		}
		d.unindexSubtree(removed)
		if d.hasShadowed(removed) {
			d.reindex()
		}
		return true
	}
	return false
}

// removeFrom returns true iff the id was removed from the sequence or below it,
// and stops searching siblings once found.
func removeFrom(sequence *[]*Component, id ComponentID) (*Component, bool) {
	for index, component := range *sequence {
		if component.ID == id {
			*sequence = append((*sequence)[:index], (*sequence)[index+1:]...)
			return component, true
		}
		if removed, ok := removeFrom(&component.Children, id); ok {
			return removed, true
		}
	}
	return nil, false
}

// Copy deep-clones the component and assigns fresh ids to every node of the clone.
// Child parent references are rewired to the new ids; the clone root has no parent.
func Copy(component *Component, ids IDProvider) (*Component, error) {
	clone := component.Clone()
	if err := reassignIDs(clone, "", ids); err != nil {
		return nil, err
	}
	return clone, nil
}

func reassignIDs(component *Component, parentID ComponentID, ids IDProvider) error {
	raw, err := ids.NewID()
	if err != nil {
		return err
	}
	id, err := NewComponentID(raw)
	if err != nil {
		return err
	}
	component.ID = id
	component.ParentID = parentID
	for _, child := range component.Children {
		if err := reassignIDs(child, id, ids); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a deep copy of every page.
func (d *Document) Snapshot() []*Page {
	pages := make([]*Page, 0, len(d.pages))
	for _, page := range d.pages {
		pages = append(pages, page.Clone())
	}
	return pages
}

// Len reports the number of indexed components.
func (d *Document) Len() int {
	return len(d.index)
}
