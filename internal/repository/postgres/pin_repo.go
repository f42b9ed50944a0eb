package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/courier/internal/domain"
)

type PinRepo struct {
	pool *pgxpool.Pool
}

func NewPinRepo(pool *pgxpool.Pool) *PinRepo {
	return &PinRepo{pool: pool}
}

// Pin keeps the first pin of a message.
func (r *PinRepo) Pin(ctx context.Context, p *domain.Pin) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pinned_messages (message_id, pinned_by, pinned_at) VALUES ($1, $2, $3) ON CONFLICT (message_id) DO NOTHING`,
		p.MessageID, p.PinnedBy, p.PinnedAt,
	)
	return err
}

func (r *PinRepo) Unpin(ctx context.Context, messageID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pinned_messages WHERE message_id = $1`, messageID)
	return err
}

func (r *PinRepo) List(ctx context.Context) ([]domain.Pin, error) {
	rows, err := r.pool.Query(ctx, `SELECT message_id, pinned_by, pinned_at FROM pinned_messages ORDER BY pinned_at DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Pin])
}
