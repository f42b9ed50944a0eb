package ws

import (
	"context"
	"errors"

	"github.com/vedran77/courier/internal/metrics"
	"github.com/vedran77/courier/internal/presence"
	"github.com/vedran77/courier/pkg/log"
)

var ErrRegistryStopped = errors.New("session registry stopped")

// Registry tracks every live session. A single coordinator goroutine owns
// the map; callers talk to it over channels, so no lock is ever held while
// someone writes to a socket.
type Registry struct {
	sessions map[string]*Session

	register   chan *Session
	unregister chan string
	snapshot   chan chan []*Session
	stopped    chan struct{}

	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan string),
		snapshot:   make(chan chan []*Session),
		stopped:    make(chan struct{}),
		metrics:    m,
	}
}

// Run serves requests until ctx is cancelled. Call this in a goroutine.
func (r *Registry) Run(ctx context.Context) error {
	defer close(r.stopped)
	logger := log.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-r.register:
			r.sessions[s.id] = s
			r.metrics.SessionOpened()
			logger.Info().
				Str(log.FieldConnID, s.id).
				Str(log.FieldUsername, s.username).
				Int("sessions", len(r.sessions)).
				Msg("session registered")

		case id := <-r.unregister:
			s, ok := r.sessions[id]
			if !ok {
				continue
			}
			delete(r.sessions, id)
			r.metrics.SessionClosed()
			logger.Info().
				Str(log.FieldConnID, id).
				Str(log.FieldUsername, s.username).
				Int("sessions", len(r.sessions)).
				Msg("session unregistered")

		case reply := <-r.snapshot:
			out := make([]*Session, 0, len(r.sessions))
			for _, s := range r.sessions {
				out = append(out, s)
			}
			reply <- out
		}
	}
}

func (r *Registry) Register(ctx context.Context, s *Session) error {
	select {
	case r.register <- s:
		return nil
	case <-r.stopped:
		return ErrRegistryStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unregister is a no-op for unknown ids and after the registry stopped.
func (r *Registry) Unregister(id string) {
	select {
	case r.unregister <- id:
	case <-r.stopped:
	}
}

// Snapshot returns a point-in-time copy of the live sessions.
func (r *Registry) Snapshot(ctx context.Context) ([]*Session, error) {
	reply := make(chan []*Session, 1)
	select {
	case r.snapshot <- reply:
	case <-r.stopped:
		return nil, ErrRegistryStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return <-reply, nil
}

// Conns lists the live connections for the presence store.
func (r *Registry) Conns(ctx context.Context) ([]presence.Conn, error) {
	sessions, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	conns := make([]presence.Conn, 0, len(sessions))
	for _, s := range sessions {
		conns = append(conns, presence.Conn{ID: s.id, Username: s.username})
	}
	return conns, nil
}
