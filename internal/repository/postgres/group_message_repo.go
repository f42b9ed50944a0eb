package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/courier/internal/domain"
)

type GroupMessageRepo struct {
	pool *pgxpool.Pool
}

func NewGroupMessageRepo(pool *pgxpool.Pool) *GroupMessageRepo {
	return &GroupMessageRepo{pool: pool}
}

func (r *GroupMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO group_messages (group_id, sender_username, message, timestamp, reveal_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return r.pool.QueryRow(ctx, query,
		msg.GroupID, msg.Sender, msg.Body, msg.Timestamp, msg.RevealAt,
	).Scan(&msg.ID)
}

func (r *GroupMessageRepo) ListByGroup(ctx context.Context, groupID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, group_id, sender_username, message, timestamp, deleted, edited_at, reveal_at
		FROM group_messages
		WHERE group_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, err
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var m domain.Message
		err := row.Scan(&m.ID, &m.GroupID, &m.Sender, &m.Body, &m.Timestamp, &m.Deleted, &m.EditedAt, &m.RevealAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	reverse(messages)
	return messages, nil
}

func (r *GroupMessageRepo) Edit(ctx context.Context, id int64, sender, body, editedAt string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE group_messages SET message = $1, edited_at = $2 WHERE id = $3 AND sender_username = $4 AND NOT deleted`,
		body, editedAt, id, sender,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GroupMessageRepo) SoftDelete(ctx context.Context, id int64, sender string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE group_messages SET deleted = true WHERE id = $1 AND sender_username = $2 AND NOT deleted`,
		id, sender,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
