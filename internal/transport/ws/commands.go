package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vedran77/courier/pkg/validator"
)

// Inbound command types.
const (
	CmdChatMessage          = "chat_message"
	CmdGroupMessage         = "group_message"
	CmdEditMessage          = "edit_message"
	CmdDeleteMessage        = "delete_message"
	CmdScheduleMessage      = "schedule_message"
	CmdAddReaction          = "add_reaction"
	CmdRemoveReaction       = "remove_reaction"
	CmdPinMessage           = "pin_message"
	CmdUnpinMessage         = "unpin_message"
	CmdGetReactions         = "get_reactions"
	CmdGetPinnedMessages    = "get_pinned_messages"
	CmdGetConversation      = "get_conversation"
	CmdGetGroupConversation = "get_group_conversation"
	CmdCallOffer            = "call_offer"
	CmdCallAnswer           = "call_answer"
	CmdCallICE              = "call_ice"
	CmdCallEnd              = "call_end"
	CmdCallNeedOffer        = "call_need_offer"
	CmdCreateGame           = "create_game"
	CmdJoinGame             = "join_game"
	CmdGameMove             = "game_move"
	CmdGetGameState         = "get_game_state"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownCommand = errors.New("unknown command type")
	ErrInvalidCommand = errors.New("invalid command")
)

// Command is one decoded client frame. The set of implementations is closed.
type Command interface {
	Kind() string
}

type SendDirect struct {
	Receiver        string  `json:"receiver_username" validate:"required"`
	Message         string  `json:"message" validate:"required"`
	RevealAfterSecs *int64  `json:"reveal_after_secs"`
	RevealAt        *string `json:"reveal_at"`
}

type SendGroup struct {
	GroupID         int64   `json:"group_id" validate:"gt=0"`
	Message         string  `json:"message" validate:"required"`
	RevealAfterSecs *int64  `json:"reveal_after_secs"`
	RevealAt        *string `json:"reveal_at"`
}

type EditMessage struct {
	MessageID int64  `json:"message_id" validate:"gt=0"`
	Message   string `json:"message" validate:"required"`
}

type DeleteMessage struct {
	MessageID int64 `json:"message_id" validate:"gt=0"`
}

// ScheduleMessage leaves target checking to the scheduler so a missing
// target is acknowledged instead of ignored.
type ScheduleMessage struct {
	Message          string  `json:"message" validate:"required"`
	Receiver         *string `json:"receiver_username"`
	GroupID          *int64  `json:"group_id"`
	ScheduledAt      *string `json:"scheduled_at"`
	ScheduledAtEpoch *int64  `json:"scheduled_at_epoch"`
}

type AddReaction struct {
	MessageID int64  `json:"message_id" validate:"gt=0"`
	Emoji     string `json:"emoji" validate:"required"`
}

type RemoveReaction struct {
	MessageID int64  `json:"message_id" validate:"gt=0"`
	Emoji     string `json:"emoji" validate:"required"`
}

type PinMessage struct {
	MessageID int64 `json:"message_id" validate:"gt=0"`
}

type UnpinMessage struct {
	MessageID int64 `json:"message_id" validate:"gt=0"`
}

type GetReactions struct {
	MessageID int64 `json:"message_id" validate:"gt=0"`
}

type GetPinnedMessages struct{}

type GetConversation struct {
	Peer string `json:"receiver_username" validate:"required"`
}

type GetGroupConversation struct {
	GroupID int64 `json:"group_id" validate:"gt=0"`
}

// CallSignal relays WebRTC signaling to Target. Type is one of the call_*
// command types.
type CallSignal struct {
	Type      string  `json:"type"`
	Target    string  `json:"target_username" validate:"required"`
	SDP       *string `json:"sdp"`
	Candidate *string `json:"candidate"`
}

// GameCommand carries a game frame untouched for the game engine.
type GameCommand struct {
	Type  string
	Frame json.RawMessage
}

func (SendDirect) Kind() string           { return CmdChatMessage }
func (SendGroup) Kind() string            { return CmdGroupMessage }
func (EditMessage) Kind() string          { return CmdEditMessage }
func (DeleteMessage) Kind() string        { return CmdDeleteMessage }
func (ScheduleMessage) Kind() string      { return CmdScheduleMessage }
func (AddReaction) Kind() string          { return CmdAddReaction }
func (RemoveReaction) Kind() string       { return CmdRemoveReaction }
func (PinMessage) Kind() string           { return CmdPinMessage }
func (UnpinMessage) Kind() string         { return CmdUnpinMessage }
func (GetReactions) Kind() string         { return CmdGetReactions }
func (GetPinnedMessages) Kind() string    { return CmdGetPinnedMessages }
func (GetConversation) Kind() string      { return CmdGetConversation }
func (GetGroupConversation) Kind() string { return CmdGetGroupConversation }
func (c CallSignal) Kind() string         { return c.Type }
func (c GameCommand) Kind() string        { return c.Type }

// DecodeCommand parses one text frame. Frames that are not JSON objects, carry
// an unknown type or miss required fields are rejected.
func DecodeCommand(data []byte) (Command, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Type {
	case CmdChatMessage:
		return decode[SendDirect](data)
	case CmdGroupMessage:
		return decode[SendGroup](data)
	case CmdEditMessage:
		return decode[EditMessage](data)
	case CmdDeleteMessage:
		return decode[DeleteMessage](data)
	case CmdScheduleMessage:
		return decode[ScheduleMessage](data)
	case CmdAddReaction:
		return decode[AddReaction](data)
	case CmdRemoveReaction:
		return decode[RemoveReaction](data)
	case CmdPinMessage:
		return decode[PinMessage](data)
	case CmdUnpinMessage:
		return decode[UnpinMessage](data)
	case CmdGetReactions:
		return decode[GetReactions](data)
	case CmdGetPinnedMessages:
		return GetPinnedMessages{}, nil
	case CmdGetConversation:
		return decode[GetConversation](data)
	case CmdGetGroupConversation:
		return decode[GetGroupConversation](data)
	case CmdCallOffer, CmdCallAnswer, CmdCallICE, CmdCallEnd, CmdCallNeedOffer:
		return decode[CallSignal](data)
	case CmdCreateGame, CmdJoinGame, CmdGameMove, CmdGetGameState:
		return GameCommand{Type: env.Type, Frame: json.RawMessage(data)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
}

func decode[T Command](data []byte) (Command, error) {
	var cmd T
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if errs := validator.Struct(cmd); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, errs.Error())
	}
	return cmd, nil
}
