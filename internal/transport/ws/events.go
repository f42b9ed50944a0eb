package ws

import "github.com/vedran77/courier/internal/domain"

// Reply frame types, sent only to the requesting connection.
const (
	EventTypeConversationHistory      = "conversation_history"
	EventTypeGroupConversationHistory = "group_conversation_history"
	EventTypeScheduleAck              = "schedule_ack"
	EventTypeReactionsList            = "reactions_list"
	EventTypePinnedMessagesList       = "pinned_messages_list"
	EventTypeGameError                = "game_error"
	EventTypeError                    = "error"
)

// Error codes of error frames.
const (
	ErrCodeStorage = "STORAGE"
)

type ConversationHistory struct {
	Type             string               `json:"type"`
	ConversationWith string               `json:"conversation_with"`
	Messages         []domain.ChatMessage `json:"messages"`
}

type GroupConversationHistory struct {
	Type     string               `json:"type"`
	GroupID  int64                `json:"group_id"`
	Messages []domain.ChatMessage `json:"messages"`
}

type ScheduleAck struct {
	Type              string `json:"type"`
	OK                bool   `json:"ok"`
	ScheduledForEpoch int64  `json:"scheduled_for_epoch,omitempty"`
	Error             string `json:"error,omitempty"`
}

type ReactionsList struct {
	Type      string              `json:"type"`
	MessageID int64               `json:"message_id"`
	Reactions map[string][]string `json:"reactions"`
}

type PinnedMessagesList struct {
	Type           string       `json:"type"`
	PinnedMessages []domain.Pin `json:"pinned_messages"`
}

type GameError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthFailure is written before closing a connection whose token was
// missing or rejected.
type AuthFailure struct {
	Error string `json:"error"`
}
