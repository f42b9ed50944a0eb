package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/courier/internal/domain"
)

type ScheduledRepo struct {
	pool *pgxpool.Pool
}

func NewScheduledRepo(pool *pgxpool.Pool) *ScheduledRepo {
	return &ScheduledRepo{pool: pool}
}

func (r *ScheduledRepo) Create(ctx context.Context, s *domain.ScheduledMessage) error {
	query := `
		INSERT INTO scheduled_messages
			(sender_username, receiver_username, group_id, message, scheduled_at, scheduled_at_epoch, sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		RETURNING id`
	return r.pool.QueryRow(ctx, query,
		s.Sender, s.Receiver, s.GroupID, s.Body, s.ScheduledAt, s.DueEpoch, s.CreatedAt,
	).Scan(&s.ID)
}

// ListDue returns unsent rows whose due time has passed, oldest id first.
// Rows without an epoch fall back to comparing the ISO timestamp.
func (r *ScheduledRepo) ListDue(ctx context.Context, nowEpoch int64, nowISO string, limit int) ([]domain.ScheduledMessage, error) {
	query := `
		SELECT id, sender_username, receiver_username, group_id, message,
			scheduled_at, scheduled_at_epoch, sent, created_at, sent_at
		FROM scheduled_messages
		WHERE NOT sent
			AND (scheduled_at_epoch <= $1 OR (scheduled_at_epoch IS NULL AND scheduled_at <= $2))
		ORDER BY id
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, nowEpoch, nowISO, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ScheduledMessage, error) {
		var s domain.ScheduledMessage
		err := row.Scan(
			&s.ID, &s.Sender, &s.Receiver, &s.GroupID, &s.Body,
			&s.ScheduledAt, &s.DueEpoch, &s.Sent, &s.CreatedAt, &s.SentAt,
		)
		return s, err
	})
}

func (r *ScheduledRepo) MarkSent(ctx context.Context, id int64, sentAt string) error {
	_, err := r.pool.Exec(ctx, `UPDATE scheduled_messages SET sent = true, sent_at = $1 WHERE id = $2`, sentAt, id)
	return err
}
