package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
	"go.uber.org/zap"
)

const (
	defaultBufferSize   = 16
	defaultStoreTimeout = 5 * time.Second
)

var (
	errMissingIDProvider = errors.New("id provider is required")
	errRoomClosed        = errors.New("room closed")
	// ErrNotClientMutation indicates a mutation only the room authority may produce.
	ErrNotClientMutation = errors.New("realtime: mutation is not accepted from clients")
	// ErrHubClosed indicates a call after Close.
	ErrHubClosed = errors.New("realtime: hub closed")

	noOpLogger = zap.NewNop()
)

// Event is one room event delivered to a subscriber.
type Event struct {
	RoomCode  canvas.RoomCode
	Mutation  collab.Mutation
	Origin    int64
	Timestamp time.Time
}

// SnapshotStore persists the pages of a room.
type SnapshotStore interface {
	LoadPages(ctx context.Context, code canvas.RoomCode) ([]*canvas.Page, error)
	SavePages(ctx context.Context, code canvas.RoomCode, pages []*canvas.Page) error
}

// Relay fans client mutations out to other service instances hosting the same rooms.
type Relay interface {
	Publish(ctx context.Context, code canvas.RoomCode, mutation collab.Mutation) error
	Subscribe(ctx context.Context, handle func(canvas.RoomCode, collab.Mutation)) error
}

// HubConfig wires a Hub.
type HubConfig struct {
	IDProvider   canvas.IDProvider
	Catalog      *canvas.Catalog
	Store        SnapshotStore
	Relay        Relay
	Logger       *zap.Logger
	BufferSize   int
	StoreTimeout time.Duration
	Clock        func() time.Time
}

// Hub owns one authoritative session per open room. Each room runs on its own
// goroutine; the hub only routes calls to it.
type Hub struct {
	ids          canvas.IDProvider
	catalog      *canvas.Catalog
	store        SnapshotStore
	relay        Relay
	logger       *zap.Logger
	bufferSize   int
	storeTimeout time.Duration
	clock        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	rooms  map[canvas.RoomCode]*room
	nextID int64
	closed bool
}

// NewHub builds a hub. Run must be called to receive relay traffic.
func NewHub(cfg HubConfig) (*Hub, error) {
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
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ids:          cfg.IDProvider,
		catalog:      catalog,
		store:        cfg.Store,
		relay:        cfg.Relay,
		logger:       logger,
		bufferSize:   bufferSize,
		storeTimeout: storeTimeout,
		clock:        clock,
		ctx:          ctx,
		cancel:       cancel,
		rooms:        make(map[canvas.RoomCode]*room),
	}, nil
}

// Run consumes relay traffic until the context ends. Without a relay it only waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	err := h.relay.Subscribe(ctx, func(code canvas.RoomCode, mutation collab.Mutation) {
		h.applyRelayed(code, mutation)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close stops every room and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()
	h.wg.Wait()
}

// Subscription is one participant or observer attached to a room.
type Subscription struct {
	ID     int64
	Events <-chan Event

	once    sync.Once
	leave   chan struct{}
	evicted *atomic.Bool
}

// Evicted reports whether the room closed Events because the subscriber fell behind.
// An evicted participant must join again to receive a fresh initialCanvasLoad.
func (s *Subscription) Evicted() bool {
	return s.evicted.Load()
}

// Close detaches the subscription. The event channel is closed afterwards.
func (s *Subscription) Close() {
	s.once.Do(func() { close(s.leave) })
}

// Join attaches a participant. The subscriber first receives initialCanvasLoad, then
// every participant receives the new users list.
func (h *Hub) Join(ctx context.Context, code canvas.RoomCode, user collab.User) (*Subscription, error) {
	return h.attach(ctx, code, &user)
}

// Observe attaches a read-only subscriber that does not appear in the users list.
func (h *Hub) Observe(ctx context.Context, code canvas.RoomCode) (*Subscription, error) {
	return h.attach(ctx, code, nil)
}

func (h *Hub) attach(ctx context.Context, code canvas.RoomCode, user *collab.User) (*Subscription, error) {
	sub := &subscriber{
		id:      h.nextSequence(),
		user:    user,
		stream:  make(chan Event, h.bufferSize),
		evicted: &atomic.Bool{},
	}
	target, err := h.withRoom(ctx, code, func(state *roomState) {
		state.join(sub)
	})
	if err != nil {
		return nil, err
	}
	subscription := &Subscription{ID: sub.id, Events: sub.stream, leave: make(chan struct{}), evicted: sub.evicted}
	go func() {
		select {
		case <-ctx.Done():
		case <-subscription.leave:
		case <-target.done:
			return
		}
		if err := target.exec(h.ctx, func(state *roomState) { state.leave(sub.id) }); err != nil {
			h.logger.Debug("leave after room stop", zap.String("room_code", code.String()), zap.Error(err))
		}
	}()
	return subscription, nil
}

// Submit applies a mutation to the room authority and broadcasts it with its
// engine follow-ups. origin is the submitting subscription id, or 0.
func (h *Hub) Submit(ctx context.Context, code canvas.RoomCode, mutation collab.Mutation, origin int64) (collab.Outcome, error) {
	switch mutation.(type) {
	case collab.InitialCanvasLoad, collab.UsersListUpdated:
		return collab.Outcome{}, ErrNotClientMutation
	}
	var outcome collab.Outcome
	_, err := h.withRoom(ctx, code, func(state *roomState) {
		outcome = state.submit(mutation, origin, true)
	})
	if err != nil {
		return collab.Outcome{}, err
	}
	if outcome.Applied && h.relay != nil {
		if err := h.relay.Publish(ctx, code, mutation); err != nil {
			h.logger.Warn("relay publish failed",
				zap.String("room_code", code.String()),
				zap.String("event", string(mutation.Name())),
				zap.Error(err))
		}
	}
	return outcome, nil
}

// Snapshot returns a deep copy of the room pages.
func (h *Hub) Snapshot(ctx context.Context, code canvas.RoomCode) ([]*canvas.Page, error) {
	var pages []*canvas.Page
	_, err := h.withRoom(ctx, code, func(state *roomState) {
		pages = state.session.Snapshot()
	})
	return pages, err
}

// Users returns the presence list of the room.
func (h *Hub) Users(ctx context.Context, code canvas.RoomCode) ([]collab.User, error) {
	var users []collab.User
	_, err := h.withRoom(ctx, code, func(state *roomState) {
		users = state.presence()
	})
	return users, err
}

// OpenRooms reports how many room goroutines are running.
func (h *Hub) OpenRooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) applyRelayed(code canvas.RoomCode, mutation collab.Mutation) {
	h.mu.Lock()
	target, open := h.rooms[code]
	h.mu.Unlock()
	if !open {
		return
	}
	err := target.exec(h.ctx, func(state *roomState) {
		state.submit(mutation, 0, false)
	})
	if err != nil {
		h.logger.Debug("relayed mutation dropped", zap.String("room_code", code.String()), zap.Error(err))
	}
}

// withRoom runs fn on the room goroutine, opening the room when needed. A room that
// retires between lookup and execution is reopened.
func (h *Hub) withRoom(ctx context.Context, code canvas.RoomCode, fn func(*roomState)) (*room, error) {
	for {
		target, err := h.openRoom(code)
		if err != nil {
			return nil, err
		}
		err = target.exec(ctx, fn)
		if errors.Is(err, errRoomClosed) {
			if h.ctx.Err() != nil {
				return nil, ErrHubClosed
			}
			continue
		}
		return target, err
	}
}

func (h *Hub) openRoom(code canvas.RoomCode) (*room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	if existing, ok := h.rooms[code]; ok {
		return existing, nil
	}
	session, err := collab.NewSession(collab.SessionConfig{
		RoomCode:   code,
		IDProvider: h.ids,
		Catalog:    h.catalog,
		Logger:     h.logger,
	})
	if err != nil {
		return nil, err
	}
	created := newRoom(h, code, session)
	h.rooms[code] = created
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		created.run(h.ctx)
	}()
	return created, nil
}

func (h *Hub) retire(target *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[target.code] == target {
		delete(h.rooms, target.code)
	}
}

func (h *Hub) nextSequence() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	return h.nextID
}
