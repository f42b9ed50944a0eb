package domain

import "time"

const (
	// RecalledBody replaces the body of a soft-deleted message in history.
	RecalledBody = "Message recalled by sender"
	editedSuffix = " (edited)"

	// TimestampLayout is RFC3339 with fixed millisecond width so stored
	// timestamps sort lexically.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Message is a stored direct or group message row. GroupID is nil for
// direct messages, Receiver is empty for group messages.
type Message struct {
	ID        int64
	GroupID   *int64
	Sender    string
	Receiver  string
	Body      string
	Timestamp string
	Deleted   bool
	EditedAt  *string
	RevealAt  *string
}

func (m *Message) IsGroup() bool {
	return m.GroupID != nil
}

// ChatMessage is the wire record for live events and history entries.
type ChatMessage struct {
	ID               int64             `json:"id"`
	GroupID          *int64            `json:"group_id,omitempty"`
	SenderUsername   string            `json:"sender_username"`
	ReceiverUsername string            `json:"receiver_username"`
	Message          string            `json:"message"`
	Timestamp        string            `json:"timestamp"`
	Reactions        map[string]string `json:"reactions,omitempty"`
	RevealAt         *string           `json:"reveal_at,omitempty"`
}

// HistoryView renders a stored row the way conversation history shows it.
func (m *Message) HistoryView() ChatMessage {
	body := m.Body
	switch {
	case m.Deleted:
		body = RecalledBody
	case m.EditedAt != nil && *m.EditedAt != "":
		body += editedSuffix
	}

	return ChatMessage{
		ID:               m.ID,
		GroupID:          m.GroupID,
		SenderUsername:   m.Sender,
		ReceiverUsername: m.Receiver,
		Message:          body,
		Timestamp:        m.Timestamp,
		RevealAt:         m.RevealAt,
	}
}
