package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/repository"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrNotGroupMember = errors.New("user is not a member of this group")
)

// Membership answers the two questions delivery depends on. Answers are
// read from storage on every call and never cached.
type Membership interface {
	IsMember(ctx context.Context, groupID int64, username string) (bool, error)
	GhostMode(ctx context.Context, groupID int64) (bool, error)
}

type GroupService struct {
	groupRepo repository.GroupRepository
}

func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

type CreateGroupInput struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Members     []string `json:"members" validate:"dive,required"`
	GhostMode   bool     `json:"ghost_mode"`
}

type UpdateGroupInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	GhostMode   *bool   `json:"ghost_mode"`
}

type GroupListResponse struct {
	MemberGroups    []domain.Group `json:"member_groups"`
	AvailableGroups []domain.Group `json:"available_groups"`
}

func (s *GroupService) IsMember(ctx context.Context, groupID int64, username string) (bool, error) {
	ok, err := s.groupRepo.IsMember(ctx, groupID, username)
	if err != nil {
		return false, fmt.Errorf("checking membership of group %d: %w", groupID, err)
	}
	return ok, nil
}

func (s *GroupService) GhostMode(ctx context.Context, groupID int64) (bool, error) {
	ghost, err := s.groupRepo.GhostMode(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("reading ghost mode of group %d: %w", groupID, err)
	}
	return ghost, nil
}

// Create makes owner a member along with every listed member.
func (s *GroupService) Create(ctx context.Context, owner string, input CreateGroupInput) (*domain.Group, error) {
	var desc *string
	if d := strings.TrimSpace(input.Description); d != "" {
		desc = &d
	}

	g := &domain.Group{
		Name:          strings.TrimSpace(input.Name),
		Description:   desc,
		OwnerUsername: owner,
		GhostMode:     input.GhostMode,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.groupRepo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}

	// first spelling wins; membership is case-insensitive
	members := lo.UniqBy(append([]string{owner}, lo.Map(input.Members, func(m string, _ int) string {
		return strings.TrimSpace(m)
	})...), strings.ToLower)
	members = lo.Compact(members)

	for _, m := range members {
		if _, err := s.groupRepo.AddMember(ctx, g.ID, m); err != nil {
			return nil, fmt.Errorf("adding %s to group %d: %w", m, g.ID, err)
		}
	}

	g.Members = members
	g.IsMember = true
	return g, nil
}

// List splits all groups into those the user belongs to and the rest.
func (s *GroupService) List(ctx context.Context, username string) (*GroupListResponse, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}

	for i := range groups {
		members, err := s.groupRepo.ListMembers(ctx, groups[i].ID)
		if err != nil {
			return nil, fmt.Errorf("listing members of group %d: %w", groups[i].ID, err)
		}
		if members == nil {
			members = []string{}
		}
		groups[i].Members = members
		groups[i].IsMember = lo.ContainsBy(members, func(m string) bool {
			return strings.EqualFold(m, username)
		})
	}

	mine, others := lo.FilterReject(groups, func(g domain.Group, _ int) bool {
		return g.IsMember
	})
	if mine == nil {
		mine = []domain.Group{}
	}
	if others == nil {
		others = []domain.Group{}
	}

	return &GroupListResponse{MemberGroups: mine, AvailableGroups: others}, nil
}

// Join reports false when the user was already a member.
func (s *GroupService) Join(ctx context.Context, groupID int64, username string) (bool, error) {
	if _, err := s.get(ctx, groupID); err != nil {
		return false, err
	}
	joined, err := s.groupRepo.AddMember(ctx, groupID, username)
	if err != nil {
		return false, fmt.Errorf("joining group %d: %w", groupID, err)
	}
	return joined, nil
}

// Leave reports false when the user was not a member.
func (s *GroupService) Leave(ctx context.Context, groupID int64, username string) (bool, error) {
	left, err := s.groupRepo.RemoveMember(ctx, groupID, username)
	if err != nil {
		return false, fmt.Errorf("leaving group %d: %w", groupID, err)
	}
	return left, nil
}

// Update is open to any member. A ghost-mode change applies to the next
// delivered event.
func (s *GroupService) Update(ctx context.Context, groupID int64, username string, input UpdateGroupInput) (*domain.Group, error) {
	g, err := s.get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ok, err := s.IsMember(ctx, groupID, username)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotGroupMember
	}

	if input.Name != nil {
		g.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		g.Description = input.Description
	}
	if input.GhostMode != nil {
		g.GhostMode = *input.GhostMode
	}

	if err := s.groupRepo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("updating group %d: %w", groupID, err)
	}
	return g, nil
}

func (s *GroupService) get(ctx context.Context, groupID int64) (*domain.Group, error) {
	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading group %d: %w", groupID, err)
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}
