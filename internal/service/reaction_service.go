package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/repository"
)

// ReactionService owns reactions and pins. Every successful change is
// announced to all registered sessions, regardless of membership.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	pinRepo      repository.PinRepository
	notifier     Notifier
	now          func() time.Time
}

func NewReactionService(reactionRepo repository.ReactionRepository, pinRepo repository.PinRepository) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		pinRepo:      pinRepo,
		now:          time.Now,
	}
}

func (s *ReactionService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *ReactionService) AddReaction(ctx context.Context, username string, messageID int64, emoji string) error {
	err := s.reactionRepo.Add(ctx, &domain.Reaction{
		MessageID: messageID,
		Username:  username,
		Emoji:     emoji,
		CreatedAt: domain.FormatTimestamp(s.now()),
	})
	if err != nil {
		return fmt.Errorf("adding reaction: %w", err)
	}

	s.notifyAll(domain.ReactionNotice{
		Type:      domain.NoticeReactionAdded,
		MessageID: messageID,
		Username:  username,
		Emoji:     emoji,
	})
	return nil
}

func (s *ReactionService) RemoveReaction(ctx context.Context, username string, messageID int64, emoji string) error {
	if err := s.reactionRepo.Remove(ctx, messageID, username, emoji); err != nil {
		return fmt.Errorf("removing reaction: %w", err)
	}

	s.notifyAll(domain.ReactionNotice{
		Type:      domain.NoticeReactionRemoved,
		MessageID: messageID,
		Username:  username,
		Emoji:     emoji,
	})
	return nil
}

func (s *ReactionService) Pin(ctx context.Context, username string, messageID int64) error {
	err := s.pinRepo.Pin(ctx, &domain.Pin{
		MessageID: messageID,
		PinnedBy:  username,
		PinnedAt:  domain.FormatTimestamp(s.now()),
	})
	if err != nil {
		return fmt.Errorf("pinning message: %w", err)
	}

	s.notifyAll(domain.PinNotice{Type: domain.NoticeMessagePinned, MessageID: messageID, PinnedBy: username})
	return nil
}

func (s *ReactionService) Unpin(ctx context.Context, messageID int64) error {
	if err := s.pinRepo.Unpin(ctx, messageID); err != nil {
		return fmt.Errorf("unpinning message: %w", err)
	}

	s.notifyAll(domain.PinNotice{Type: domain.NoticeMessageUnpinned, MessageID: messageID})
	return nil
}

// Reactions groups a message's reactions as emoji to usernames.
func (s *ReactionService) Reactions(ctx context.Context, messageID int64) (map[string][]string, error) {
	rows, err := s.reactionRepo.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("listing reactions: %w", err)
	}

	grouped := lo.GroupBy(rows, func(r domain.Reaction) string { return r.Emoji })
	return lo.MapValues(grouped, func(rs []domain.Reaction, _ string) []string {
		return lo.Map(rs, func(r domain.Reaction, _ int) string { return r.Username })
	}), nil
}

// Pinned lists pins, newest first.
func (s *ReactionService) Pinned(ctx context.Context) ([]domain.Pin, error) {
	pins, err := s.pinRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	if pins == nil {
		pins = []domain.Pin{}
	}
	return pins, nil
}

func (s *ReactionService) notifyAll(notice any) {
	if s.notifier != nil {
		s.notifier.NotifyAll(notice)
	}
}
