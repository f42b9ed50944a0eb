package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/service"
	"github.com/vedran77/courier/pkg/log"
)

const (
	missingTargetMessage = "Missing receiver or group_id"
	notMemberMessage     = "Not a member of this group"
)

type Messenger interface {
	SendDirect(ctx context.Context, sender string, input service.SendDirectInput) (*domain.Message, error)
	SendGroup(ctx context.Context, sender string, input service.SendGroupInput) (*domain.Message, error)
	Conversation(ctx context.Context, user, peer string) ([]domain.ChatMessage, error)
	GroupConversation(ctx context.Context, user string, groupID int64) ([]domain.ChatMessage, error)
	Edit(ctx context.Context, actor string, messageID int64, body string) error
	Delete(ctx context.Context, actor string, messageID int64) error
}

type Reactor interface {
	AddReaction(ctx context.Context, username string, messageID int64, emoji string) error
	RemoveReaction(ctx context.Context, username string, messageID int64, emoji string) error
	Pin(ctx context.Context, username string, messageID int64) error
	Unpin(ctx context.Context, messageID int64) error
	Reactions(ctx context.Context, messageID int64) (map[string][]string, error)
	Pinned(ctx context.Context) ([]domain.Pin, error)
}

type MessageScheduler interface {
	Schedule(ctx context.Context, sender string, input service.ScheduleInput) (*domain.ScheduledMessage, error)
}

type Publisher interface {
	Publish(ev domain.ChatEvent)
}

// Peer is the connection a command arrived on.
type Peer interface {
	Username() string
	Reply(v any)
	Deliver(frame []byte) bool
}

// Dispatcher turns decoded commands into service calls. Replies go to the
// requesting peer only; everything else travels over the bus.
type Dispatcher struct {
	messages  Messenger
	reactions Reactor
	scheduler MessageScheduler
	games     service.GameEngine
	publisher Publisher
	now       func() time.Time
}

func NewDispatcher(
	messages Messenger,
	reactions Reactor,
	scheduler MessageScheduler,
	games service.GameEngine,
	publisher Publisher,
) *Dispatcher {
	if games == nil {
		games = service.UnavailableGames{}
	}
	return &Dispatcher{
		messages:  messages,
		reactions: reactions,
		scheduler: scheduler,
		games:     games,
		publisher: publisher,
		now:       time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, p Peer, cmd Command) {
	user := p.Username()

	switch c := cmd.(type) {
	case SendDirect:
		_, err := d.messages.SendDirect(ctx, user, service.SendDirectInput{
			Receiver: c.Receiver,
			Body:     c.Message,
			Reveal:   service.Reveal{RevealAfterSecs: c.RevealAfterSecs, RevealAt: c.RevealAt},
		})
		d.fail(ctx, p, cmd, err)

	case SendGroup:
		_, err := d.messages.SendGroup(ctx, user, service.SendGroupInput{
			GroupID: c.GroupID,
			Body:    c.Message,
			Reveal:  service.Reveal{RevealAfterSecs: c.RevealAfterSecs, RevealAt: c.RevealAt},
		})
		d.fail(ctx, p, cmd, err)

	case EditMessage:
		d.fail(ctx, p, cmd, d.messages.Edit(ctx, user, c.MessageID, c.Message))

	case DeleteMessage:
		d.fail(ctx, p, cmd, d.messages.Delete(ctx, user, c.MessageID))

	case ScheduleMessage:
		d.schedule(ctx, p, c)

	case AddReaction:
		d.fail(ctx, p, cmd, d.reactions.AddReaction(ctx, user, c.MessageID, c.Emoji))

	case RemoveReaction:
		d.fail(ctx, p, cmd, d.reactions.RemoveReaction(ctx, user, c.MessageID, c.Emoji))

	case PinMessage:
		d.fail(ctx, p, cmd, d.reactions.Pin(ctx, user, c.MessageID))

	case UnpinMessage:
		d.fail(ctx, p, cmd, d.reactions.Unpin(ctx, c.MessageID))

	case GetReactions:
		reactions, err := d.reactions.Reactions(ctx, c.MessageID)
		if err != nil {
			d.fail(ctx, p, cmd, err)
			return
		}
		p.Reply(ReactionsList{Type: EventTypeReactionsList, MessageID: c.MessageID, Reactions: reactions})

	case GetPinnedMessages:
		pins, err := d.reactions.Pinned(ctx)
		if err != nil {
			d.fail(ctx, p, cmd, err)
			return
		}
		p.Reply(PinnedMessagesList{Type: EventTypePinnedMessagesList, PinnedMessages: pins})

	case GetConversation:
		msgs, err := d.messages.Conversation(ctx, user, c.Peer)
		if err != nil {
			d.fail(ctx, p, cmd, err)
			return
		}
		p.Reply(ConversationHistory{Type: EventTypeConversationHistory, ConversationWith: c.Peer, Messages: msgs})

	case GetGroupConversation:
		msgs, err := d.messages.GroupConversation(ctx, user, c.GroupID)
		if errors.Is(err, service.ErrNotGroupMember) {
			// outsiders get an empty history rather than no answer
			msgs, err = []domain.ChatMessage{}, nil
		}
		if err != nil {
			d.fail(ctx, p, cmd, err)
			return
		}
		p.Reply(GroupConversationHistory{Type: EventTypeGroupConversationHistory, GroupID: c.GroupID, Messages: msgs})

	case CallSignal:
		d.relayCall(ctx, user, c)

	case GameCommand:
		frame, err := d.games.Handle(ctx, user, c.Type, c.Frame)
		if err != nil {
			p.Reply(GameError{Type: EventTypeGameError, Error: err.Error()})
			return
		}
		if len(frame) > 0 {
			p.Deliver(frame)
		}

	default:
		logger := log.Ctx(ctx)
		logger.Debug().Str(log.FieldCommand, cmd.Kind()).Msg("unhandled command")
	}
}

func (d *Dispatcher) schedule(ctx context.Context, p Peer, c ScheduleMessage) {
	row, err := d.scheduler.Schedule(ctx, p.Username(), service.ScheduleInput{
		Body:             c.Message,
		Receiver:         c.Receiver,
		GroupID:          c.GroupID,
		ScheduledAt:      c.ScheduledAt,
		ScheduledAtEpoch: c.ScheduledAtEpoch,
	})
	switch {
	case errors.Is(err, service.ErrMissingTarget):
		p.Reply(ScheduleAck{Type: EventTypeScheduleAck, OK: false, Error: missingTargetMessage})
	case errors.Is(err, service.ErrNotGroupMember):
		p.Reply(ScheduleAck{Type: EventTypeScheduleAck, OK: false, Error: notMemberMessage})
	case err != nil:
		d.fail(ctx, p, c, err)
	default:
		p.Reply(ScheduleAck{Type: EventTypeScheduleAck, OK: true, ScheduledForEpoch: *row.DueEpoch})
	}
}

func (d *Dispatcher) relayCall(ctx context.Context, from string, c CallSignal) {
	payload, err := json.Marshal(domain.CallSignal{
		Type:      c.Type,
		From:      from,
		To:        c.Target,
		SDP:       c.SDP,
		Candidate: c.Candidate,
	})
	if err != nil {
		logger := log.Ctx(ctx)
		logger.Error().Err(err).Msg("encoding call signal")
		return
	}
	d.publisher.Publish(domain.SystemTargetedEvent{
		Receiver:  c.Target,
		Payload:   payload,
		Timestamp: domain.FormatTimestamp(d.now()),
	})
}

// fail reports err for cmd. Ownership and membership refusals stay silent;
// anything else is a storage failure the requester hears about.
func (d *Dispatcher) fail(ctx context.Context, p Peer, cmd Command, err error) {
	if err == nil {
		return
	}
	logger := log.Ctx(ctx)

	if errors.Is(err, service.ErrNotMessageOwner) || errors.Is(err, service.ErrNotGroupMember) {
		logger.Debug().Err(err).Str(log.FieldCommand, cmd.Kind()).Msg("command refused")
		return
	}

	logger.Error().Err(err).Str(log.FieldCommand, cmd.Kind()).Msg("command failed")
	p.Reply(ErrorFrame{Type: EventTypeError, Code: ErrCodeStorage, Message: "Could not complete " + cmd.Kind()})
}
