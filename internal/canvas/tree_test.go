package canvas

import (
	"reflect"
	"testing"
)

func TestFindByIDSearchesPagesInOrder(t *testing.T) {
	first := &Page{ID: "page-a", Components: []*Component{box("shared", KindContainer, 0, 0, 10, 10)}}
	second := &Page{ID: "page-b", Components: []*Component{box("shared", KindText, 5, 5, 10, 10)}}
	doc := NewDocument(first, second)

	found := mustFind(t, doc, "shared")
	if found.Kind != KindContainer {
		t.Fatalf("expected first pre-order match from page-a, got %s", found.Kind)
	}
	pageID, ok := doc.PageOf("shared")
	if !ok || pageID != "page-a" {
		t.Fatalf("expected owner page-a, got %q", pageID)
	}
}

func TestInsertChildSetsParentReference(t *testing.T) {
	parent := box("parent", KindContainer, 0, 0, 100, 100)
	doc := newSinglePageDocument(t, parent)

	child := box("child", KindText, 10, 10, 20, 20)
	if !doc.InsertChild("parent", child) {
		t.Fatalf("expected child insert to succeed")
	}
	if child.ParentID != "parent" {
		t.Fatalf("expected parentId to be set, got %q", child.ParentID)
	}
	grandchild := box("grandchild", KindText, 0, 0, 5, 5)
	if !doc.InsertChild("child", grandchild) {
		t.Fatalf("expected nested insert to succeed")
	}
	if found := mustFind(t, doc, "grandchild"); found != grandchild {
		t.Fatalf("expected index to return inserted node")
	}
	if pageID, _ := doc.PageOf("grandchild"); pageID != "page-1" {
		t.Fatalf("expected grandchild to belong to page-1, got %q", pageID)
	}
}

func TestInsertChildMissingParentIsNoOp(t *testing.T) {
	doc := newSinglePageDocument(t, box("root", KindContainer, 0, 0, 100, 100))
	before := doc.Snapshot()

	if doc.InsertChild("missing", box("orphan", KindText, 0, 0, 10, 10)) {
		t.Fatalf("expected insert into missing parent to report false")
	}
	if _, ok := doc.FindByID("orphan"); ok {
		t.Fatalf("orphan must not be indexed")
	}
	if !reflect.DeepEqual(before, doc.Snapshot()) {
		t.Fatalf("tree changed after no-op insert")
	}
}

func TestInsertThenRemoveRestoresTree(t *testing.T) {
	testCases := []struct {
		name   string
		insert func(doc *Document, component *Component) bool
	}{
		{
			name: "root",
			insert: func(doc *Document, component *Component) bool {
				return doc.InsertRoot("page-1", component)
			},
		},
		{
			name: "nested",
			insert: func(doc *Document, component *Component) bool {
				return doc.InsertChild("inner", component)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			outer := box("outer", KindContainer, 0, 0, 200, 200)
			doc := newSinglePageDocument(t, outer)
			if !doc.InsertChild("outer", box("inner", KindContainer, 10, 10, 100, 100)) {
				t.Fatalf("failed to seed nested container")
			}
			before := doc.Snapshot()

			if !testCase.insert(doc, box("temp", KindText, 1, 1, 10, 10)) {
				t.Fatalf("insert failed")
			}
			if !doc.Remove("temp") {
				t.Fatalf("expected remove to report true")
			}
			if !reflect.DeepEqual(before, doc.Snapshot()) {
				t.Fatalf("tree differs after insert/remove round trip")
			}
			if _, ok := doc.FindByID("temp"); ok {
				t.Fatalf("removed component still indexed")
			}
		})
	}
}

func TestRemoveMissingIDLeavesTreeUnchanged(t *testing.T) {
	doc := newSinglePageDocument(t, box("root", KindContainer, 0, 0, 100, 100))
	before := doc.Snapshot()

	if doc.Remove("does-not-exist") {
		t.Fatalf("expected remove of unknown id to report false")
	}
	if !reflect.DeepEqual(before, doc.Snapshot()) {
		t.Fatalf("tree changed after removing unknown id")
	}
}

func TestRemoveDropsSubtreeFromIndex(t *testing.T) {
	doc := newSinglePageDocument(t, box("root", KindContainer, 0, 0, 100, 100))
	doc.InsertChild("root", box("child", KindContainer, 0, 0, 50, 50))
	doc.InsertChild("child", box("leaf", KindText, 0, 0, 10, 10))

	if !doc.Remove("child") {
		t.Fatalf("expected nested remove to succeed")
	}
	if _, ok := doc.FindByID("leaf"); ok {
		t.Fatalf("descendant of removed component still indexed")
	}
	if len(mustFind(t, doc, "root").Children) != 0 {
		t.Fatalf("expected root to have no children")
	}
}

func TestRemoveStopsAtFirstMatch(t *testing.T) {
	first := &Page{ID: "page-a", Components: []*Component{box("dup", KindContainer, 0, 0, 10, 10)}}
	second := &Page{ID: "page-b", Components: []*Component{box("dup", KindText, 0, 0, 10, 10)}}
	doc := NewDocument(first, second)

	if !doc.Remove("dup") {
		t.Fatalf("expected remove to succeed")
	}
	if len(first.Components) != 0 || len(second.Components) != 1 {
		t.Fatalf("expected only the first match to be removed")
	}
	remaining := mustFind(t, doc, "dup")
	if remaining.Kind != KindText {
		t.Fatalf("expected shadowed duplicate to be re-indexed, got %s", remaining.Kind)
	}
}

func TestCopyRegeneratesEveryID(t *testing.T) {
	source := box("src", KindContainer, 5, 5, 100, 100)
	child := box("src-child", KindContainer, 1, 1, 50, 50)
	child.ParentID = source.ID
	leaf := box("src-leaf", KindText, 1, 1, 10, 10)
	leaf.ParentID = child.ID
	child.Children = append(child.Children, leaf)
	source.Children = append(source.Children, child)

	ids := &sequenceIDProvider{prefix: "copy"}
	clone, err := Copy(source, ids)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	seen := map[ComponentID]bool{}
	clone.Walk(func(node *Component) bool {
		if node.ID == "src" || node.ID == "src-child" || node.ID == "src-leaf" {
			t.Fatalf("clone reused source id %s", node.ID)
		}
		if seen[node.ID] {
			t.Fatalf("clone has duplicate id %s", node.ID)
		}
		seen[node.ID] = true
		return true
	})
	if clone.ParentID != "" {
		t.Fatalf("clone root should not carry a parent")
	}
	if clone.Children[0].ParentID != clone.ID || clone.Children[0].Children[0].ParentID != clone.Children[0].ID {
		t.Fatalf("child parent references were not rewired")
	}
	if source.ID != "src" || source.Children[0].ID != "src-child" {
		t.Fatalf("source subtree was mutated")
	}
}

func TestAddPageIsIdempotentAndRemovePageUnindexes(t *testing.T) {
	doc := NewDocument()
	page := &Page{ID: "page-1", Components: []*Component{box("root", KindContainer, 0, 0, 10, 10)}}
	if !doc.AddPage(page) {
		t.Fatalf("expected first add to succeed")
	}
	if doc.AddPage(&Page{ID: "page-1"}) {
		t.Fatalf("expected duplicate page add to be ignored")
	}
	if len(doc.Pages()) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages()))
	}
	mustFind(t, doc, "root")

	if !doc.RemovePage("page-1") {
		t.Fatalf("expected page removal to succeed")
	}
	if _, ok := doc.FindByID("root"); ok {
		t.Fatalf("components of removed page still indexed")
	}
	if doc.RemovePage("page-1") {
		t.Fatalf("expected second removal to report false")
	}
}
