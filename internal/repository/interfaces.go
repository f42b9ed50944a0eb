package repository

import (
	"context"

	"github.com/vedran77/courier/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsernames(ctx context.Context) ([]string, error)
}

// DirectMessageRepository stores one-to-one messages. Edit and SoftDelete
// report whether a row owned by sender and not yet deleted was affected.
type DirectMessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListConversation(ctx context.Context, user1, user2 string, limit int) ([]domain.Message, error)
	Edit(ctx context.Context, id int64, sender, body, editedAt string) (bool, error)
	SoftDelete(ctx context.Context, id int64, sender string) (bool, error)
}

type GroupMessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]domain.Message, error)
	Edit(ctx context.Context, id int64, sender, body, editedAt string) (bool, error)
	SoftDelete(ctx context.Context, id int64, sender string) (bool, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id int64) (*domain.Group, error)
	List(ctx context.Context) ([]domain.Group, error)
	Update(ctx context.Context, group *domain.Group) error
	AddMember(ctx context.Context, groupID int64, username string) (bool, error)
	RemoveMember(ctx context.Context, groupID int64, username string) (bool, error)
	IsMember(ctx context.Context, groupID int64, username string) (bool, error)
	GhostMode(ctx context.Context, groupID int64) (bool, error)
	ListMembers(ctx context.Context, groupID int64) ([]string, error)
}

type ScheduledRepository interface {
	Create(ctx context.Context, msg *domain.ScheduledMessage) error
	ListDue(ctx context.Context, nowEpoch int64, nowISO string, limit int) ([]domain.ScheduledMessage, error)
	MarkSent(ctx context.Context, id int64, sentAt string) error
}

type ReactionRepository interface {
	Add(ctx context.Context, reaction *domain.Reaction) error
	Remove(ctx context.Context, messageID int64, username, emoji string) error
	ListByMessage(ctx context.Context, messageID int64) ([]domain.Reaction, error)
	ListByMessages(ctx context.Context, messageIDs []int64) ([]domain.Reaction, error)
}

type PinRepository interface {
	Pin(ctx context.Context, pin *domain.Pin) error
	Unpin(ctx context.Context, messageID int64) error
	List(ctx context.Context) ([]domain.Pin, error)
}
