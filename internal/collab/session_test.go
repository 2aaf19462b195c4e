package collab

import (
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
)

func TestNewSessionValidatesDependencies(t *testing.T) {
	if _, err := NewSession(SessionConfig{IDProvider: &sequenceIDProvider{}}); !errors.Is(err, errMissingRoomCode) {
		t.Fatalf("expected missing room code error, got %v", err)
	}
	if _, err := NewSession(SessionConfig{RoomCode: "ROOM1"}); !errors.Is(err, errMissingIDProvider) {
		t.Fatalf("expected missing id provider error, got %v", err)
	}
}

func TestChildAddGrowsParentAndReportsFollowUp(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, box("P", 0, 0, 100, 100))

	outcome := session.Apply(ChildComponentAdded{
		PageID:   testPageID,
		ParentID: "P",
		Child:    box("C", 20, 20, 100, 100),
	})
	if !outcome.Applied {
		t.Fatalf("expected child add to apply")
	}
	assertSize(t, mustFind(t, session, "P"), 130, 130)
	if len(outcome.FollowUps) != 1 {
		t.Fatalf("expected one follow-up, got %d", len(outcome.FollowUps))
	}
	resize, ok := outcome.FollowUps[0].(ComponentPropertiesUpdated)
	if !ok || resize.ComponentID != "P" || resize.PageID != testPageID {
		t.Fatalf("unexpected follow-up %#v", outcome.FollowUps[0])
	}
	if original, ok := session.Ledger().OriginalSize("P"); !ok || original.Width != 100 {
		t.Fatalf("expected original baseline recorded, got %+v", original)
	}
	if mustFind(t, session, "C").ParentID != "P" {
		t.Fatalf("expected child parent reference to be set")
	}
}

func TestGrowthPropagatesParentBeforeGrandparent(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, nest(box("G", 0, 0, 100, 100), box("P", 10, 10, 80, 80)))

	outcome := session.Apply(ChildComponentAdded{
		PageID:   testPageID,
		ParentID: "P",
		Child:    box("C", 20, 20, 100, 100),
	})
	assertSize(t, mustFind(t, session, "P"), 130, 130)
	assertSize(t, mustFind(t, session, "G"), 150, 150)
	if len(outcome.FollowUps) != 2 {
		t.Fatalf("expected two follow-ups, got %d", len(outcome.FollowUps))
	}
	first := outcome.FollowUps[0].(ComponentPropertiesUpdated)
	second := outcome.FollowUps[1].(ComponentPropertiesUpdated)
	if first.ComponentID != "P" || second.ComponentID != "G" {
		t.Fatalf("expected parent then grandparent, got %s then %s", first.ComponentID, second.ComponentID)
	}
}

func TestPropertyShrinkClampsChildrenWithoutRegrowingParent(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, nest(box("P", 0, 0, 200, 200), box("C", 50, 50, 140, 140)))

	outcome := session.Apply(ComponentPropertiesUpdated{
		PageID:      testPageID,
		ComponentID: "P",
		Patch:       canvas.SizePatch(canvas.Resize{ID: "P", Width: 100, Height: 100}),
	})
	assertSize(t, mustFind(t, session, "P"), 100, 100)
	assertSize(t, mustFind(t, session, "C"), 40, 40)
	if len(outcome.FollowUps) != 1 {
		t.Fatalf("expected only the child clamp, got %d follow-ups", len(outcome.FollowUps))
	}

	// Peers applying the clamp must not push the parent back out.
	replay := session.Apply(outcome.FollowUps[0])
	if len(replay.FollowUps) != 0 {
		t.Fatalf("expected clamp replay to settle immediately, got %d", len(replay.FollowUps))
	}
	assertSize(t, mustFind(t, session, "P"), 100, 100)
}

func TestChildGrowthThroughPropertyUpdateGrowsParent(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, nest(box("P", 0, 0, 100, 100), box("C", 10, 10, 50, 50)))

	outcome := session.Apply(ComponentPropertiesUpdated{
		PageID:      testPageID,
		ComponentID: "C",
		Patch:       canvas.Patch{{Path: canvas.PathWidth, Value: 150}},
	})
	assertSize(t, mustFind(t, session, "P"), 170, 100)
	if len(outcome.FollowUps) != 1 {
		t.Fatalf("expected one follow-up, got %d", len(outcome.FollowUps))
	}
}

func TestComponentAddedIsIdempotent(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session)

	added := ComponentAdded{PageID: testPageID, Component: box("A", 0, 0, 10, 10)}
	if !session.Apply(added).Applied {
		t.Fatalf("expected first add to apply")
	}
	if session.Apply(CloneMutation(added)).Applied {
		t.Fatalf("expected duplicate add to be ignored")
	}
	page, _ := session.Document().Page(testPageID)
	if len(page.Components) != 1 {
		t.Fatalf("expected one root, got %d", len(page.Components))
	}
}

func TestMissingTargetsAreNoOps(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, box("A", 0, 0, 10, 10))
	before := session.Snapshot()

	mutations := []Mutation{
		ChildComponentAdded{PageID: testPageID, ParentID: "ghost", Child: box("C", 0, 0, 1, 1)},
		ComponentRemoved{PageID: testPageID, ComponentID: "ghost"},
		ComponentMoved{PageID: testPageID, ComponentID: "ghost", Position: Position{Left: 1, Top: 1}},
		ComponentPropertiesUpdated{PageID: testPageID, ComponentID: "ghost", Patch: canvas.PositionPatch(1, 1)},
		ComponentAdded{PageID: "ghost-page", Component: box("B", 0, 0, 1, 1)},
		PageRemoved{PageID: "ghost-page"},
	}
	for _, mutation := range mutations {
		if session.Apply(mutation).Applied {
			t.Fatalf("expected %s on a missing target to be ignored", mutation.Name())
		}
	}
	after := session.Snapshot()
	if len(after[0].Components) != len(before[0].Components) {
		t.Fatalf("expected tree to be unchanged")
	}
}

func TestMoveSetsOffsetsWithoutResizing(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, nest(box("P", 0, 0, 100, 100), box("C", 10, 10, 20, 20)))

	outcome := session.Apply(ComponentMoved{
		PageID:      testPageID,
		ComponentID: "C",
		Position:    Position{Left: 300, Top: 300, UserID: "u1"},
	})
	if !outcome.Applied || len(outcome.FollowUps) != 0 {
		t.Fatalf("expected move without follow-ups, got %+v", outcome)
	}
	if left, top := mustFind(t, session, "C").Offset(); left != 300 || top != 300 {
		t.Fatalf("expected offsets (300,300), got (%v,%v)", left, top)
	}
	assertSize(t, mustFind(t, session, "P"), 100, 100)
}

func TestRemoveClearsSelectionInsideSubtreeAndClosesMenu(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, nest(box("P", 0, 0, 100, 100), box("C", 10, 10, 20, 20)), box("Other", 0, 0, 5, 5))

	session.Select("C")
	session.OpenContextMenu("P", 4, 5)
	if !session.Apply(ComponentRemoved{PageID: testPageID, ComponentID: "P"}).Applied {
		t.Fatalf("expected remove to apply")
	}
	if session.Selected() != "" {
		t.Fatalf("expected selection to be cleared, got %s", session.Selected())
	}
	if _, open := session.ContextMenu(); open {
		t.Fatalf("expected context menu to be closed")
	}
	if _, ok := session.Document().FindByID("C"); ok {
		t.Fatalf("expected subtree to be removed")
	}

	session.Select("Other")
	session.Apply(ComponentRemoved{PageID: testPageID, ComponentID: "ghost"})
	if session.Selected() != "Other" {
		t.Fatalf("expected unrelated selection to survive")
	}
}

func TestCurrentPageIndexIsClamped(t *testing.T) {
	session := newTestSession(t, nil)
	if session.CurrentPage() != -1 {
		t.Fatalf("expected -1 without pages, got %d", session.CurrentPage())
	}
	for _, id := range []canvas.PageID{"p1", "p2", "p3"} {
		session.Apply(PageAdded{Page: &canvas.Page{ID: id, Name: string(id)}})
	}
	if session.CurrentPage() != 0 {
		t.Fatalf("expected first page selected, got %d", session.CurrentPage())
	}
	session.SetCurrentPage(2)
	session.Apply(PageRemoved{PageID: "p3"})
	if session.CurrentPage() != 1 {
		t.Fatalf("expected index clamped to 1, got %d", session.CurrentPage())
	}
	session.Apply(PageRemoved{PageID: "p1"})
	session.Apply(PageRemoved{PageID: "p2"})
	if session.CurrentPage() != -1 {
		t.Fatalf("expected -1 after removing every page, got %d", session.CurrentPage())
	}
	if session.Apply(PageAdded{Page: &canvas.Page{ID: "p4"}}).Applied == false {
		t.Fatalf("expected page add to apply")
	}
	if session.Apply(PageAdded{Page: &canvas.Page{ID: "p4"}}).Applied {
		t.Fatalf("expected duplicate page add to be ignored")
	}
}

func TestUnknownPropertyIsSkippedButOthersApply(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, box("A", 0, 0, 10, 10))

	patch, errs := canvas.ParsePatch(map[string]any{"left": 42.0, "madeUp": 1})
	if len(errs) != 1 {
		t.Fatalf("expected one parse error, got %v", errs)
	}
	session.Apply(ComponentPropertiesUpdated{PageID: testPageID, ComponentID: "A", Patch: patch})
	if left, _ := mustFind(t, session, "A").Offset(); left != 42 {
		t.Fatalf("expected left 42, got %v", left)
	}
}

func TestUsersListReplacesPresence(t *testing.T) {
	session := newTestSession(t, nil)
	session.Apply(UsersListUpdated{Users: []User{{ID: "u1", Name: "Ana"}}})
	session.Apply(UsersListUpdated{Users: []User{{ID: "u2", Name: "Bo"}, {ID: "u3", Name: "Cy"}}})
	users := session.Users()
	if len(users) != 2 || users[0].ID != "u2" {
		t.Fatalf("unexpected users %+v", users)
	}
}

func TestMutationsNamingAnotherPageAreIgnored(t *testing.T) {
	session := newTestSession(t, nil)
	loadPage(t, session, box("A", 0, 0, 10, 10))
	session.Apply(PageAdded{Page: &canvas.Page{ID: "page-2", Name: "Perfil"}})

	mutations := []Mutation{
		ComponentPropertiesUpdated{PageID: "page-2", ComponentID: "A", Patch: canvas.SizePatch(canvas.Resize{ID: "A", Width: 50, Height: 50})},
		ComponentMoved{PageID: "page-2", ComponentID: "A", Position: Position{Left: 5, Top: 5}},
		ComponentSizeReset{PageID: "page-2", ComponentID: "A"},
		ComponentRemoved{PageID: "page-2", ComponentID: "A"},
	}
	for _, mutation := range mutations {
		if session.Apply(mutation).Applied {
			t.Fatalf("expected %s for the wrong page to be skipped", mutation.Name())
		}
	}
	component := mustFind(t, session, "A")
	assertSize(t, component, 10, 10)
	if left, top := component.Offset(); left != 0 || top != 0 {
		t.Fatalf("expected A to stay at the origin, got (%v,%v)", left, top)
	}
}
