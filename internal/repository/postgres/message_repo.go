package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/courier/internal/domain"
)

// MessageRepo stores direct messages.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (sender_username, receiver_username, message, timestamp, reveal_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return r.pool.QueryRow(ctx, query,
		msg.Sender, msg.Receiver, msg.Body, msg.Timestamp, msg.RevealAt,
	).Scan(&msg.ID)
}

// ListConversation returns the newest limit messages between two users,
// oldest first. Usernames match case-insensitively.
func (r *MessageRepo) ListConversation(ctx context.Context, user1, user2 string, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, sender_username, receiver_username, message, timestamp, deleted, edited_at, reveal_at
		FROM messages
		WHERE (lower(sender_username) = lower($1) AND lower(receiver_username) = lower($2))
			OR (lower(sender_username) = lower($2) AND lower(receiver_username) = lower($1))
		ORDER BY id DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, user1, user2, limit)
	if err != nil {
		return nil, err
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var m domain.Message
		err := row.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Body, &m.Timestamp, &m.Deleted, &m.EditedAt, &m.RevealAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	reverse(messages)
	return messages, nil
}

func (r *MessageRepo) Edit(ctx context.Context, id int64, sender, body, editedAt string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET message = $1, edited_at = $2 WHERE id = $3 AND sender_username = $4 AND NOT deleted`,
		body, editedAt, id, sender,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id int64, sender string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET deleted = true WHERE id = $1 AND sender_username = $2 AND NOT deleted`,
		id, sender,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// reverse flips a DESC page into chronological order.
func reverse(messages []domain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
