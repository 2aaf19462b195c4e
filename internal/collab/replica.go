package collab

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	errMissingTransport = errors.New("transport is required")
	errMissingSession   = errors.New("session is required")
	// ErrReplicaStopped is returned by Do once Run has returned.
	ErrReplicaStopped = errors.New("collab: replica stopped")
)

// ReplicaConfig wires a client-side reconciler loop.
type ReplicaConfig struct {
	Transport Transport
	Session   *Session
	User      User
	Logger    *zap.Logger
}

// Replica runs a session on a single goroutine, applying remote events as they arrive
// and local commands submitted through Do. Follow-ups of remote events are not
// re-emitted: the room authority broadcasts its own.
type Replica struct {
	transport Transport
	session   *Session
	user      User
	logger    *zap.Logger
	commands  chan replicaCommand
	done      chan struct{}
}

type replicaCommand struct {
	run    func(*Session)
	finish chan struct{}
}

// NewReplica validates the configuration.
func NewReplica(cfg ReplicaConfig) (*Replica, error) {
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}
	if cfg.Session == nil {
		return nil, errMissingSession
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Replica{
		transport: cfg.Transport,
		session:   cfg.Session,
		user:      cfg.User,
		logger:    logger,
		commands:  make(chan replicaCommand),
		done:      make(chan struct{}),
	}, nil
}

// Run joins the room and processes events until the context ends or the transport
// closes its event stream.
func (r *Replica) Run(ctx context.Context) error {
	defer close(r.done)
	if err := r.transport.JoinRoom(ctx, r.session.Room(), r.user); err != nil {
		return err
	}
	events := r.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case mutation, ok := <-events:
			if !ok {
				return nil
			}
			outcome := r.session.Apply(mutation)
			if !outcome.Applied {
				r.logger.Debug("remote mutation ignored",
					zap.String("room_code", r.session.Room().String()),
					zap.String("event", string(mutation.Name())))
			}
		case command := <-r.commands:
			command.run(r.session)
			close(command.finish)
		}
	}
}

// Do runs fn on the replica goroutine and waits for it to finish.
func (r *Replica) Do(ctx context.Context, fn func(*Session)) error {
	command := replicaCommand{run: fn, finish: make(chan struct{})}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrReplicaStopped
	case r.commands <- command:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-command.finish:
		return nil
	}
}
