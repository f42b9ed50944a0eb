package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/courier/internal/domain"
)

type ReactionRepo struct {
	pool *pgxpool.Pool
}

func NewReactionRepo(pool *pgxpool.Pool) *ReactionRepo {
	return &ReactionRepo{pool: pool}
}

// Add is idempotent per (message, user, emoji).
func (r *ReactionRepo) Add(ctx context.Context, re *domain.Reaction) error {
	query := `
		INSERT INTO message_reactions (message_id, username, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, username, emoji) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, re.MessageID, re.Username, re.Emoji, re.CreatedAt)
	return err
}

func (r *ReactionRepo) Remove(ctx context.Context, messageID int64, username, emoji string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND username = $2 AND emoji = $3`,
		messageID, username, emoji,
	)
	return err
}

func (r *ReactionRepo) ListByMessage(ctx context.Context, messageID int64) ([]domain.Reaction, error) {
	return r.ListByMessages(ctx, []int64{messageID})
}

// ListByMessages returns reactions in insertion order.
func (r *ReactionRepo) ListByMessages(ctx context.Context, messageIDs []int64) ([]domain.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT message_id, username, emoji, created_at FROM message_reactions WHERE message_id = ANY($1) ORDER BY id`,
		messageIDs,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Reaction])
}
