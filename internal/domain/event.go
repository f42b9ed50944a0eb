package domain

import "encoding/json"

const (
	// SystemSender marks control frames. Registration refuses it as a username.
	SystemSender = "system"
	// AnonymousSender replaces the sender of events in ghost-mode groups.
	AnonymousSender = "Anonymous"
)

// ChatEvent is a value carried on the event bus. Events are immutable once
// published; consumers copy before masking.
type ChatEvent interface {
	chatEvent()
}

type DirectEvent struct {
	ID        int64
	Sender    string
	Receiver  string
	Body      string
	Timestamp string
	RevealAt  *string
}

type GroupEvent struct {
	ID        int64
	GroupID   int64
	Sender    string
	Body      string
	Timestamp string
	RevealAt  *string
}

type PatchKind string

const (
	PatchEdited  PatchKind = "edited"
	PatchDeleted PatchKind = "deleted"
)

// PatchEvent announces an edit or delete. It is addressed to the acting user.
type PatchEvent struct {
	MessageID int64
	Kind      PatchKind
	Group     bool
	Receiver  string
	Payload   json.RawMessage
	Timestamp string
}

// SystemTargetedEvent is a control frame for exactly one username.
type SystemTargetedEvent struct {
	Receiver  string
	Payload   json.RawMessage
	Timestamp string
}

func (DirectEvent) chatEvent()         {}
func (GroupEvent) chatEvent()          {}
func (PatchEvent) chatEvent()          {}
func (SystemTargetedEvent) chatEvent() {}

// Wire renders an event as the ChatMessage record clients receive. Control
// events travel as system messages whose body is the JSON payload.
func Wire(ev ChatEvent) ChatMessage {
	switch e := ev.(type) {
	case DirectEvent:
		return ChatMessage{
			ID:               e.ID,
			SenderUsername:   e.Sender,
			ReceiverUsername: e.Receiver,
			Message:          e.Body,
			Timestamp:        e.Timestamp,
			RevealAt:         e.RevealAt,
		}
	case GroupEvent:
		gid := e.GroupID
		return ChatMessage{
			ID:             e.ID,
			GroupID:        &gid,
			SenderUsername: e.Sender,
			Message:        e.Body,
			Timestamp:      e.Timestamp,
			RevealAt:       e.RevealAt,
		}
	case PatchEvent:
		return systemMessage(e.Receiver, e.Payload, e.Timestamp)
	case SystemTargetedEvent:
		return systemMessage(e.Receiver, e.Payload, e.Timestamp)
	default:
		return ChatMessage{}
	}
}

func systemMessage(receiver string, payload json.RawMessage, ts string) ChatMessage {
	return ChatMessage{
		SenderUsername:   SystemSender,
		ReceiverUsername: receiver,
		Message:          string(payload),
		Timestamp:        ts,
	}
}

// Control payloads carried inside system messages.

type MessageEditedNotice struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	Group     bool   `json:"group"`
	Message   string `json:"message"`
	EditedAt  string `json:"edited_at"`
}

type MessageDeletedNotice struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	Group     bool   `json:"group"`
}

type ReactionNotice struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	Username  string `json:"username"`
	Emoji     string `json:"emoji"`
}

type PinNotice struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	PinnedBy  string `json:"pinned_by,omitempty"`
}

type CallSignal struct {
	Type      string  `json:"type"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	SDP       *string `json:"sdp"`
	Candidate *string `json:"candidate"`
}

const (
	NoticeMessageEdited   = "message_edited"
	NoticeMessageDeleted  = "message_deleted"
	NoticeReactionAdded   = "reaction_added"
	NoticeReactionRemoved = "reaction_removed"
	NoticeMessagePinned   = "message_pinned"
	NoticeMessageUnpinned = "message_unpinned"
)
