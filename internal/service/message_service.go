package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/repository"
)

var (
	// ErrNotMessageOwner covers a missing row, a row owned by someone else
	// and a row already deleted. Storage does not distinguish them.
	ErrNotMessageOwner = errors.New("only the message sender can change a live message")
)

const defaultHistoryLimit = 50

// Notifier hands events to connected clients.
type Notifier interface {
	// Publish places an event on the shared bus, filtered per session.
	Publish(ev domain.ChatEvent)
	// NotifyAll sends a control notice to every registered session,
	// addressed to that session's own user.
	NotifyAll(notice any)
}

type MessageService struct {
	directRepo   repository.DirectMessageRepository
	groupMsgRepo repository.GroupMessageRepository
	reactionRepo repository.ReactionRepository
	membership   Membership
	notifier     Notifier
	historyLimit int
	now          func() time.Time
}

func NewMessageService(
	directRepo repository.DirectMessageRepository,
	groupMsgRepo repository.GroupMessageRepository,
	reactionRepo repository.ReactionRepository,
	membership Membership,
	historyLimit int,
) *MessageService {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &MessageService{
		directRepo:   directRepo,
		groupMsgRepo: groupMsgRepo,
		reactionRepo: reactionRepo,
		membership:   membership,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Reveal carries the optional delayed-reveal fields of a send command.
// RevealAfterSecs wins over RevealAt.
type Reveal struct {
	RevealAfterSecs *int64
	RevealAt        *string
}

type SendDirectInput struct {
	Receiver string
	Body     string
	Reveal
}

type SendGroupInput struct {
	GroupID int64
	Body    string
	Reveal
}

func (s *MessageService) SendDirect(ctx context.Context, sender string, input SendDirectInput) (*domain.Message, error) {
	now := s.now()
	return s.storeDirect(ctx, sender, input.Receiver, input.Body, now, input.Reveal.at(now))
}

// SendGroup requires the sender to be a member of the group.
func (s *MessageService) SendGroup(ctx context.Context, sender string, input SendGroupInput) (*domain.Message, error) {
	if err := s.requireMember(ctx, input.GroupID, sender); err != nil {
		return nil, err
	}
	now := s.now()
	return s.storeGroup(ctx, sender, input.GroupID, input.Body, now, input.Reveal.at(now))
}

func (s *MessageService) storeDirect(ctx context.Context, sender, receiver, body string, now time.Time, revealAt *string) (*domain.Message, error) {
	msg := &domain.Message{
		Sender:    sender,
		Receiver:  receiver,
		Body:      body,
		Timestamp: domain.FormatTimestamp(now),
		RevealAt:  revealAt,
	}
	if err := s.directRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("storing direct message: %w", err)
	}

	s.publish(domain.DirectEvent{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Body:      msg.Body,
		Timestamp: msg.Timestamp,
		RevealAt:  msg.RevealAt,
	})
	return msg, nil
}

func (s *MessageService) storeGroup(ctx context.Context, sender string, groupID int64, body string, now time.Time, revealAt *string) (*domain.Message, error) {
	msg := &domain.Message{
		GroupID:   &groupID,
		Sender:    sender,
		Body:      body,
		Timestamp: domain.FormatTimestamp(now),
		RevealAt:  revealAt,
	}
	if err := s.groupMsgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("storing group message: %w", err)
	}

	s.publish(domain.GroupEvent{
		ID:        msg.ID,
		GroupID:   groupID,
		Sender:    msg.Sender,
		Body:      msg.Body,
		Timestamp: msg.Timestamp,
		RevealAt:  msg.RevealAt,
	})
	return msg, nil
}

// Conversation returns the latest direct messages between user and peer,
// oldest first, with each message's reactions keyed by username.
func (s *MessageService) Conversation(ctx context.Context, user, peer string) ([]domain.ChatMessage, error) {
	rows, err := s.directRepo.ListConversation(ctx, user, peer, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	ids := lo.Map(rows, func(m domain.Message, _ int) int64 { return m.ID })
	reactions, err := s.reactionRepo.ListByMessages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading reactions: %w", err)
	}
	byMessage := lo.GroupBy(reactions, func(r domain.Reaction) int64 { return r.MessageID })

	out := make([]domain.ChatMessage, 0, len(rows))
	for i := range rows {
		view := rows[i].HistoryView()
		if rs := byMessage[rows[i].ID]; len(rs) > 0 {
			// later rows overwrite earlier ones: latest reaction per user
			view.Reactions = lo.SliceToMap(rs, func(r domain.Reaction) (string, string) {
				return r.Username, r.Emoji
			})
		}
		out = append(out, view)
	}
	return out, nil
}

// GroupConversation returns the latest group messages, oldest first. Ghost
// groups show every sender as anonymous.
func (s *MessageService) GroupConversation(ctx context.Context, user string, groupID int64) ([]domain.ChatMessage, error) {
	if err := s.requireMember(ctx, groupID, user); err != nil {
		return nil, err
	}

	rows, err := s.groupMsgRepo.ListByGroup(ctx, groupID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading group conversation: %w", err)
	}

	ghost, err := s.membership.GhostMode(ctx, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChatMessage, 0, len(rows))
	for i := range rows {
		view := rows[i].HistoryView()
		if ghost {
			view.SenderUsername = domain.AnonymousSender
		}
		out = append(out, view)
	}
	return out, nil
}

// Edit rewrites a live message owned by actor. Direct messages are tried
// before group messages.
func (s *MessageService) Edit(ctx context.Context, actor string, messageID int64, body string) error {
	editedAt := domain.FormatTimestamp(s.now())

	group := false
	ok, err := s.directRepo.Edit(ctx, messageID, actor, body, editedAt)
	if err != nil {
		return fmt.Errorf("editing message: %w", err)
	}
	if !ok {
		group = true
		ok, err = s.groupMsgRepo.Edit(ctx, messageID, actor, body, editedAt)
		if err != nil {
			return fmt.Errorf("editing group message: %w", err)
		}
	}
	if !ok {
		return ErrNotMessageOwner
	}

	return s.publishPatch(actor, messageID, domain.PatchEdited, group, editedAt, domain.MessageEditedNotice{
		Type:      domain.NoticeMessageEdited,
		MessageID: messageID,
		Group:     group,
		Message:   body,
		EditedAt:  editedAt,
	})
}

// Delete soft-deletes a live message owned by actor.
func (s *MessageService) Delete(ctx context.Context, actor string, messageID int64) error {
	group := false
	ok, err := s.directRepo.SoftDelete(ctx, messageID, actor)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if !ok {
		group = true
		ok, err = s.groupMsgRepo.SoftDelete(ctx, messageID, actor)
		if err != nil {
			return fmt.Errorf("deleting group message: %w", err)
		}
	}
	if !ok {
		return ErrNotMessageOwner
	}

	return s.publishPatch(actor, messageID, domain.PatchDeleted, group, domain.FormatTimestamp(s.now()), domain.MessageDeletedNotice{
		Type:      domain.NoticeMessageDeleted,
		MessageID: messageID,
		Group:     group,
	})
}

// publishPatch addresses the notice to the actor only.
func (s *MessageService) publishPatch(actor string, messageID int64, kind domain.PatchKind, group bool, ts string, notice any) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encoding %s notice: %w", kind, err)
	}
	s.publish(domain.PatchEvent{
		MessageID: messageID,
		Kind:      kind,
		Group:     group,
		Receiver:  actor,
		Payload:   payload,
		Timestamp: ts,
	})
	return nil
}

func (s *MessageService) requireMember(ctx context.Context, groupID int64, username string) error {
	ok, err := s.membership.IsMember(ctx, groupID, username)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotGroupMember
	}
	return nil
}

func (s *MessageService) publish(ev domain.ChatEvent) {
	if s.notifier != nil {
		s.notifier.Publish(ev)
	}
}

// maxRevealAfterSecs is the largest offset a time.Duration can hold.
const maxRevealAfterSecs = math.MaxInt64 / int64(time.Second)

// at resolves the reveal time. Unparseable timestamps and offsets beyond
// maxRevealAfterSecs are dropped.
func (r Reveal) at(now time.Time) *string {
	switch {
	case r.RevealAfterSecs != nil:
		secs := *r.RevealAfterSecs
		if secs > maxRevealAfterSecs || secs < -maxRevealAfterSecs {
			return nil
		}
		ts := domain.FormatTimestamp(now.Add(time.Duration(secs) * time.Second))
		return &ts
	case r.RevealAt != nil:
		t, err := time.Parse(time.RFC3339, *r.RevealAt)
		if err != nil {
			return nil
		}
		ts := domain.FormatTimestamp(t)
		return &ts
	default:
		return nil
	}
}
