package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsReservedUsername reports whether name collides with a label the server
// injects into outbound events.
func IsReservedUsername(name string) bool {
	return strings.EqualFold(name, SystemSender) || strings.EqualFold(name, AnonymousSender)
}
