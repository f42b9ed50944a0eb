package domain

type Reaction struct {
	MessageID int64  `json:"message_id"`
	Username  string `json:"username"`
	Emoji     string `json:"emoji"`
	CreatedAt string `json:"created_at"`
}

type Pin struct {
	MessageID int64  `json:"message_id"`
	PinnedBy  string `json:"pinned_by"`
	PinnedAt  string `json:"pinned_at"`
}
