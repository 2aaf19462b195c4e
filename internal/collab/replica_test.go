package collab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTransportEmitterDispatchesByMutation(t *testing.T) {
	transport := newFakeTransport()
	emitter := NewTransportEmitter(context.Background(), transport, "ROOM1", nil)
	session := newTestSession(t, emitter)
	loadPage(t, session, box("P", 0, 0, 50, 50))

	if _, err := session.AddChild(testPageID, "P", canvas.KindContainer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.Move(testPageID, "P", 3, 4, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.RemoveComponent(testPageID, "P"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := transport.recorded()
	want := []string{"AddChildComponent", "UpdateComponentProperties", "MoveComponent", "RemoveCanvasComponent"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %+v", len(want), calls)
	}
	for index, call := range calls {
		if call.method != want[index] || call.room != "ROOM1" || call.pageID != testPageID {
			t.Fatalf("unexpected call %d: %+v", index, call)
		}
	}
}

func TestTransportEmitterLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	transport := newFakeTransport()
	transport.err = errors.New("socket closed")
	emitter := NewTransportEmitter(context.Background(), transport, "ROOM1", zap.New(core))

	emitter.Emit(ComponentRemoved{PageID: testPageID, ComponentID: "A"})
	emitter.Emit(UsersListUpdated{})

	if logs.Len() != 2 {
		t.Fatalf("expected two warnings, got %d", logs.Len())
	}
	if logs.All()[0].Message != "transport emit failed" {
		t.Fatalf("unexpected log message %q", logs.All()[0].Message)
	}
}

func TestReplicaAppliesRemoteEventsInOrder(t *testing.T) {
	transport := newFakeTransport()
	session := newTestSession(t, nil)
	replica, err := NewReplica(ReplicaConfig{Transport: transport, Session: session, User: User{ID: "u1", Name: "Ana"}})
	if err != nil {
		t.Fatalf("failed to create replica: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	finished := make(chan error, 1)
	go func() { finished <- replica.Run(ctx) }()

	page := &canvas.Page{ID: testPageID, Components: []*canvas.Component{box("P", 0, 0, 100, 100)}}
	transport.events <- InitialCanvasLoad{Pages: []*canvas.Page{page}}
	transport.events <- ChildComponentAdded{PageID: testPageID, ParentID: "P", Child: box("C", 20, 20, 100, 100)}
	transport.events <- ComponentAdded{PageID: testPageID, Component: box("P", 0, 0, 1, 1)}

	var width float64
	var roots int
	if err := replica.Do(ctx, func(s *Session) {
		parent, _ := s.Document().FindByID("P")
		width = parent.Size().Width
		current, _ := s.Document().Page(testPageID)
		roots = len(current.Components)
	}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if width != 130 || roots != 1 {
		t.Fatalf("expected grown parent and one root, got width %v roots %d", width, roots)
	}

	close(transport.events)
	if err := <-finished; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
	if err := replica.Do(ctx, func(*Session) {}); !errors.Is(err, ErrReplicaStopped) {
		t.Fatalf("expected stopped replica error, got %v", err)
	}
	if calls := transport.recorded(); len(calls) == 0 || calls[0].method != "JoinRoom" {
		t.Fatalf("expected join before events, got %+v", calls)
	}
}

func TestNewReplicaValidatesDependencies(t *testing.T) {
	if _, err := NewReplica(ReplicaConfig{}); !errors.Is(err, errMissingTransport) {
		t.Fatalf("expected missing transport error, got %v", err)
	}
	if _, err := NewReplica(ReplicaConfig{Transport: newFakeTransport()}); !errors.Is(err, errMissingSession) {
		t.Fatalf("expected missing session error, got %v", err)
	}
}
