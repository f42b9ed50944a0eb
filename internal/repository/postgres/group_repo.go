package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/courier/internal/domain"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	query := `
		INSERT INTO groups (name, description, owner_username, ghost_mode, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return r.pool.QueryRow(ctx, query, g.Name, g.Description, g.OwnerUsername, g.GhostMode, g.CreatedAt).Scan(&g.ID)
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	query := `SELECT id, name, description, owner_username, ghost_mode, created_at FROM groups WHERE id = $1`
	var g domain.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.Description, &g.OwnerUsername, &g.GhostMode, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepo) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, owner_username, ghost_mode, created_at FROM groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Group, error) {
		var g domain.Group
		err := row.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerUsername, &g.GhostMode, &g.CreatedAt)
		return g, err
	})
}

func (r *GroupRepo) Update(ctx context.Context, g *domain.Group) error {
	query := `UPDATE groups SET name = $1, description = $2, ghost_mode = $3 WHERE id = $4`
	_, err := r.pool.Exec(ctx, query, g.Name, g.Description, g.GhostMode, g.ID)
	return err
}

// AddMember reports false when the user was already a member, in any
// letter case.
func (r *GroupRepo) AddMember(ctx context.Context, groupID int64, username string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, username) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, username,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID int64, username string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND lower(username) = lower($2)`,
		groupID, username,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GroupRepo) IsMember(ctx context.Context, groupID int64, username string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND lower(username) = lower($2))`,
		groupID, username,
	).Scan(&ok)
	return ok, err
}

// GhostMode is false for unknown groups.
func (r *GroupRepo) GhostMode(ctx context.Context, groupID int64) (bool, error) {
	var ghost bool
	err := r.pool.QueryRow(ctx, `SELECT ghost_mode FROM groups WHERE id = $1`, groupID).Scan(&ghost)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return ghost, err
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT username FROM group_members WHERE group_id = $1 ORDER BY joined_at, username`, groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
