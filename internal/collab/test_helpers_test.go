package collab

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
)

const testPageID = canvas.PageID("page-1")

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("gen-%d", p.next), nil
}

type recordingEmitter struct {
	mutations []Mutation
}

func (e *recordingEmitter) Emit(mutation Mutation) {
	e.mutations = append(e.mutations, mutation)
}

func (e *recordingEmitter) names() []EventName {
	names := make([]EventName, 0, len(e.mutations))
	for _, mutation := range e.mutations {
		names = append(names, mutation.Name())
	}
	return names
}

func box(id string, left, top, width, height float64) *canvas.Component {
	component := canvas.NewComponent(canvas.ComponentID(id), canvas.KindContainer)
	component.Left = &left
	component.Top = &top
	component.Width = &width
	component.Height = &height
	return component
}

func nest(parent *canvas.Component, children ...*canvas.Component) *canvas.Component {
	for _, child := range children {
		child.ParentID = parent.ID
		parent.Children = append(parent.Children, child)
	}
	return parent
}

func newTestSession(t *testing.T, emitter Emitter) *Session {
	t.Helper()
	session, err := NewSession(SessionConfig{
		RoomCode:   canvas.RoomCode("ROOM1"),
		Emitter:    emitter,
		IDProvider: &sequenceIDProvider{},
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func loadPage(t *testing.T, session *Session, roots ...*canvas.Component) {
	t.Helper()
	page := &canvas.Page{ID: testPageID, Name: "Inicio", Components: roots}
	if outcome := session.Apply(InitialCanvasLoad{Pages: []*canvas.Page{page}}); !outcome.Applied {
		t.Fatalf("initial load was not applied")
	}
}

func mustFind(t *testing.T, session *Session, id string) *canvas.Component {
	t.Helper()
	component, ok := session.Document().FindByID(canvas.ComponentID(id))
	if !ok {
		t.Fatalf("expected component %s to exist", id)
	}
	return component
}

func assertSize(t *testing.T, component *canvas.Component, width, height float64) {
	t.Helper()
	size := component.Size()
	if size.Width != width || size.Height != height {
		t.Fatalf("expected %s to be %vx%v, got %vx%v", component.ID, width, height, size.Width, size.Height)
	}
}

type transportCall struct {
	method      string
	room        canvas.RoomCode
	pageID      canvas.PageID
	componentID canvas.ComponentID
}

type fakeTransport struct {
	mu     sync.Mutex
	calls  []transportCall
	events chan Mutation
	err    error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Mutation)}
}

func (f *fakeTransport) record(call transportCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeTransport) recorded() []transportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transportCall(nil), f.calls...)
}

func (f *fakeTransport) JoinRoom(_ context.Context, code canvas.RoomCode, user User) error {
	return f.record(transportCall{method: "JoinRoom", room: code})
}

func (f *fakeTransport) AddPage(_ context.Context, code canvas.RoomCode, page *canvas.Page) error {
	return f.record(transportCall{method: "AddPage", room: code, pageID: page.ID})
}

func (f *fakeTransport) RemovePage(_ context.Context, code canvas.RoomCode, pageID canvas.PageID) error {
	return f.record(transportCall{method: "RemovePage", room: code, pageID: pageID})
}

func (f *fakeTransport) AddCanvasComponent(_ context.Context, code canvas.RoomCode, pageID canvas.PageID, component *canvas.Component) error {
	return f.record(transportCall{method: "AddCanvasComponent", room: code, pageID: pageID, componentID: component.ID})
}

func (f *fakeTransport) AddChildComponent(_ context.Context, code canvas.RoomCode, parentID canvas.ComponentID, component *canvas.Component, pageID canvas.PageID) error {
	return f.record(transportCall{method: "AddChildComponent", room: code, pageID: pageID, componentID: component.ID})
}

func (f *fakeTransport) RemoveCanvasComponent(_ context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID) error {
	return f.record(transportCall{method: "RemoveCanvasComponent", room: code, pageID: pageID, componentID: componentID})
}

func (f *fakeTransport) MoveComponent(_ context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID, _ Position) error {
	return f.record(transportCall{method: "MoveComponent", room: code, pageID: pageID, componentID: componentID})
}

func (f *fakeTransport) UpdateComponentProperties(_ context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID, _ canvas.Patch) error {
	return f.record(transportCall{method: "UpdateComponentProperties", room: code, pageID: pageID, componentID: componentID})
}

func (f *fakeTransport) ResetComponentSize(_ context.Context, code canvas.RoomCode, pageID canvas.PageID, componentID canvas.ComponentID) error {
	return f.record(transportCall{method: "ResetComponentSize", room: code, pageID: pageID, componentID: componentID})
}

func (f *fakeTransport) Events() <-chan Mutation {
	return f.events
}
