package realtime

import (
	"context"
	"sync/atomic"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/collab"
	"go.uber.org/zap"
)

type roomCommand struct {
	run      func(*roomState)
	finished chan struct{}
}

type room struct {
	hub      *Hub
	code     canvas.RoomCode
	commands chan roomCommand
	done     chan struct{}
	state    *roomState
}

type subscriber struct {
	id      int64
	user    *collab.User
	stream  chan Event
	evicted *atomic.Bool
}

type roomState struct {
	hub         *Hub
	code        canvas.RoomCode
	session     *collab.Session
	subscribers map[int64]*subscriber
	order       []int64
	logger      *zap.Logger
}

func newRoom(hub *Hub, code canvas.RoomCode, session *collab.Session) *room {
	return &room{
		hub:      hub,
		code:     code,
		commands: make(chan roomCommand),
		done:     make(chan struct{}),
		state: &roomState{
			hub:         hub,
			code:        code,
			session:     session,
			subscribers: make(map[int64]*subscriber),
			logger:      hub.logger.With(zap.String("room_code", code.String())),
		},
	}
}

// exec hands fn to the room goroutine and waits until it ran.
func (r *room) exec(ctx context.Context, fn func(*roomState)) error {
	command := roomCommand{run: fn, finished: make(chan struct{})}
	select {
	case r.commands <- command:
	case <-r.done:
		return errRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-command.finished
	return nil
}

func (r *room) run(ctx context.Context) {
	defer close(r.done)
	r.state.load(ctx)
	for {
		select {
		case <-ctx.Done():
			r.state.closeAll()
			return
		case command := <-r.commands:
			command.run(r.state)
			retiring := r.idle()
			if retiring {
				r.hub.retire(r)
			}
			close(command.finished)
			if retiring {
				r.state.closeAll()
				return
			}
		}
	}
}

// idle rooms retire only when a store holds their pages.
func (r *room) idle() bool {
	return len(r.state.subscribers) == 0 && r.hub.store != nil
}

func (s *roomState) load(ctx context.Context) {
	var pages []*canvas.Page
	if s.hub.store != nil {
		loadCtx, cancel := context.WithTimeout(ctx, s.hub.storeTimeout)
		loaded, err := s.hub.store.LoadPages(loadCtx, s.code)
		cancel()
		if err != nil {
			s.logger.Error("failed to load room pages", zap.Error(err))
		}
		pages = loaded
	}
	s.session.Apply(collab.InitialCanvasLoad{Pages: pages})
}

func (s *roomState) join(sub *subscriber) {
	s.subscribers[sub.id] = sub
	s.order = append(s.order, sub.id)
	if !s.deliver(sub, collab.InitialCanvasLoad{Pages: s.session.Snapshot()}, 0) {
		s.evict([]int64{sub.id})
		return
	}
	if sub.user != nil {
		s.broadcastPresence()
	}
	s.logger.Debug("subscriber joined", zap.Int64("subscriber_id", sub.id), zap.Bool("observer", sub.user == nil))
}

func (s *roomState) leave(id int64) {
	sub, ok := s.detach(id)
	if !ok {
		return
	}
	if sub.user != nil {
		s.broadcastPresence()
	}
	s.logger.Debug("subscriber left", zap.Int64("subscriber_id", id))
}

// detach removes a subscriber and closes its stream.
func (s *roomState) detach(id int64) (*subscriber, bool) {
	sub, ok := s.subscribers[id]
	if !ok {
		return nil, false
	}
	delete(s.subscribers, id)
	remaining := make([]int64, 0, len(s.order))
	for _, candidate := range s.order {
		if candidate != id {
			remaining = append(remaining, candidate)
		}
	}
	s.order = remaining
	close(sub.stream)
	return sub, true
}

// evict drops subscribers whose buffer overflowed. A subscriber that missed an event
// can no longer converge; closing its stream makes it rejoin and reload the canvas.
func (s *roomState) evict(ids []int64) {
	presenceChanged := false
	for _, id := range ids {
		sub, ok := s.subscribers[id]
		if !ok {
			continue
		}
		sub.evicted.Store(true)
		s.detach(id)
		presenceChanged = presenceChanged || sub.user != nil
		s.logger.Warn("subscriber fell behind, evicted",
			zap.Int64("subscriber_id", id),
			zap.Int("buffer_size", cap(sub.stream)))
	}
	if presenceChanged {
		s.broadcastPresence()
	}
}

// presence lists participants in join order, one entry per user id.
func (s *roomState) presence() []collab.User {
	seen := make(map[string]struct{})
	users := make([]collab.User, 0, len(s.order))
	for _, id := range s.order {
		sub := s.subscribers[id]
		if sub.user == nil {
			continue
		}
		if _, duplicate := seen[sub.user.ID]; duplicate {
			continue
		}
		seen[sub.user.ID] = struct{}{}
		users = append(users, *sub.user)
	}
	return users
}

func (s *roomState) broadcastPresence() {
	update := collab.UsersListUpdated{Users: s.presence()}
	s.session.Apply(update)
	s.broadcast(update, 0)
}

// submit applies the mutation, sends it to everyone but its origin and sends the
// engine follow-ups to everyone.
func (s *roomState) submit(mutation collab.Mutation, origin int64, persist bool) collab.Outcome {
	outcome := s.session.Apply(collab.CloneMutation(mutation))
	if !outcome.Applied {
		return outcome
	}
	s.broadcast(mutation, origin)
	for _, followUp := range outcome.FollowUps {
		s.broadcast(followUp, 0)
	}
	if persist && collab.Structural(mutation) {
		s.persist()
	}
	return outcome
}

func (s *roomState) persist() {
	if s.hub.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.hub.ctx, s.hub.storeTimeout)
	defer cancel()
	if err := s.hub.store.SavePages(ctx, s.code, s.session.Snapshot()); err != nil {
		s.logger.Error("failed to persist room pages", zap.Error(err))
	}
}

func (s *roomState) broadcast(mutation collab.Mutation, except int64) {
	var overflowed []int64
	for _, id := range s.order {
		if id == except {
			continue
		}
		if !s.deliver(s.subscribers[id], mutation, except) {
			overflowed = append(overflowed, id)
		}
	}
	s.evict(overflowed)
}

// deliver queues the event without blocking and reports whether it fit.
func (s *roomState) deliver(sub *subscriber, mutation collab.Mutation, origin int64) bool {
	event := Event{
		RoomCode:  s.code,
		Mutation:  mutation,
		Origin:    origin,
		Timestamp: s.hub.clock().UTC(),
	}
	select {
	case sub.stream <- event:
		return true
	default:
		return false
	}
}

func (s *roomState) closeAll() {
	for id, sub := range s.subscribers {
		close(sub.stream)
		delete(s.subscribers, id)
	}
	s.order = nil
}
