package domain

import "time"

type Group struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	OwnerUsername string    `json:"owner_username"`
	GhostMode     bool      `json:"ghost_mode"`
	CreatedAt     time.Time `json:"created_at"`
	// Filled by the service for listings
	Members  []string `json:"members"`
	IsMember bool     `json:"is_member"`
}

type GroupMember struct {
	GroupID  int64     `json:"group_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}
