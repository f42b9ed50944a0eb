package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/metrics"
	"github.com/vedran77/courier/internal/presence"
	"github.com/vedran77/courier/internal/service"
	"github.com/vedran77/courier/pkg/log"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	drainWait      = 2 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
	mailboxSize    = 256
)

var errSubscriptionClosed = errors.New("bus subscription closed")

// Session is one live connection. The read side handles commands one at a
// time; the write side merges bus events with direct replies. When either
// side stops, both stop and the session is torn down.
type Session struct {
	id       string
	username string
	conn     *websocket.Conn
	sub      *Subscription
	mailbox  chan []byte
	closing  chan struct{}

	registry   *Registry
	presence   presence.Store
	membership service.Membership
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func newSession(conn *websocket.Conn, username string, hub *Hub, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	conn.SetReadLimit(maxMessageSize)
	return &Session{
		id:         id,
		username:   username,
		conn:       conn,
		sub:        hub.Bus.Subscribe(),
		mailbox:    make(chan []byte, mailboxSize),
		closing:    make(chan struct{}),
		registry:   hub.Registry,
		presence:   hub.Presence,
		membership: hub.Membership,
		dispatcher: hub.Dispatcher,
		metrics:    hub.Metrics,
		logger: logger.With().
			Str(log.FieldConnID, id).
			Str(log.FieldUsername, username).
			Logger(),
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) Username() string { return s.username }

// Run registers the session and blocks until it ends.
func (s *Session) Run(ctx context.Context) error {
	ctx = log.WithLogger(ctx, s.logger)

	if err := s.registry.Register(ctx, s); err != nil {
		s.sub.Cancel()
		s.conn.Close(websocket.StatusTryAgainLater, "server shutting down")
		return err
	}
	if err := s.presence.Add(ctx, presence.Conn{ID: s.id, Username: s.username}); err != nil {
		s.logger.Warn().Err(err).Msg("recording presence")
	}
	s.logger.Info().Msg("session started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.readLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		err := s.writeLoop(gctx)
		s.shutdown()
		return err
	})

	err := g.Wait()
	if err != nil && !isClosure(err) {
		s.logger.Debug().Err(err).Msg("session ended with error")
	}
	s.logger.Info().Msg("session ended")
	return nil
}

// Deliver queues a frame for this connection only. It reports false when the
// session is closing or its mailbox is full.
func (s *Session) Deliver(frame []byte) bool {
	select {
	case <-s.closing:
		return false
	default:
	}
	select {
	case s.mailbox <- frame:
		return true
	default:
		s.logger.Warn().Msg("mailbox full, frame dropped")
		return false
	}
}

// Reply encodes v and queues it for this connection.
func (s *Session) Reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding reply")
		return
	}
	s.Deliver(data)
}

// readLoop reads with a context that outlives cancellation: cancelling a
// read tears down the socket, and the write side still needs it to drain.
// The read unblocks once shutdown closes the connection.
func (s *Session) readLoop(ctx context.Context) error {
	readCtx := context.WithoutCancel(ctx)
	for {
		typ, data, err := s.conn.Read(readCtx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if typ != websocket.MessageText {
			continue
		}

		cmd, err := DecodeCommand(data)
		if err != nil {
			s.logger.Debug().Err(err).Msg("ignoring frame")
			continue
		}
		s.metrics.Command(cmd.Kind())
		s.dispatcher.Dispatch(ctx, s, cmd)
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	events := s.sub.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return errSubscriptionClosed
			}
			if err := s.forward(ctx, ev); err != nil {
				return err
			}

		case frame := <-s.mailbox:
			if err := s.write(ctx, frame); err != nil {
				return err
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// forward applies the delivery filter and ghost masking to one bus event.
// Oracle failures skip the event rather than end the session.
func (s *Session) forward(ctx context.Context, ev domain.ChatEvent) error {
	ok, err := Deliverable(ctx, s.membership, s.username, ev)
	if err != nil {
		s.logger.Warn().Err(err).Msg("membership check failed, event skipped")
		return nil
	}
	if !ok {
		return nil
	}

	msg, err := Mask(ctx, s.membership, ev)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ghost mode check failed, event skipped")
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding event")
		return nil
	}
	return s.write(ctx, data)
}

func (s *Session) write(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return err
	}
	s.metrics.FrameDelivered()
	return nil
}

// shutdown runs once the write side has stopped: the session leaves the
// registry, frames already queued are flushed, then the socket closes.
func (s *Session) shutdown() {
	close(s.closing)
	s.registry.Unregister(s.id)
	s.sub.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), drainWait)
	defer cancel()
	if err := s.presence.Remove(ctx, s.id); err != nil {
		s.logger.Warn().Err(err).Msg("removing presence")
	}

drain:
	for {
		select {
		case frame := <-s.mailbox:
			if err := s.conn.Write(ctx, websocket.MessageText, frame); err != nil {
				break drain
			}
		default:
			break drain
		}
	}

	s.conn.Close(websocket.StatusNormalClosure, "")
}

func isClosure(err error) bool {
	return websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled)
}
