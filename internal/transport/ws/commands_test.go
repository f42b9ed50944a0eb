package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Command
	}{
		{
			name:  "chat message",
			frame: `{"type":"chat_message","receiver_username":"bob","message":"hi","reveal_after_secs":5}`,
			want:  SendDirect{Receiver: "bob", Message: "hi", RevealAfterSecs: ptr(int64(5))},
		},
		{
			name:  "group message",
			frame: `{"type":"group_message","group_id":7,"message":"hey"}`,
			want:  SendGroup{GroupID: 7, Message: "hey"},
		},
		{
			name:  "edit",
			frame: `{"type":"edit_message","message_id":3,"message":"fixed"}`,
			want:  EditMessage{MessageID: 3, Message: "fixed"},
		},
		{
			name:  "schedule without target is still decoded",
			frame: `{"type":"schedule_message","message":"later"}`,
			want:  ScheduleMessage{Message: "later"},
		},
		{
			name:  "pinned list",
			frame: `{"type":"get_pinned_messages"}`,
			want:  GetPinnedMessages{},
		},
		{
			name:  "call signal keeps its type",
			frame: `{"type":"call_ice","target_username":"bob","candidate":"c1"}`,
			want:  CallSignal{Type: CmdCallICE, Target: "bob", Candidate: ptr("c1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.frame))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommand_GameFrameIsPassedWhole(t *testing.T) {
	req := require.New(t)
	frame := `{"type":"game_move","game_id":"g1","move":{"x":1}}`

	cmd, err := DecodeCommand([]byte(frame))

	req.NoError(err)
	game, ok := cmd.(GameCommand)
	req.True(ok)
	req.Equal(CmdGameMove, game.Kind())
	req.JSONEq(frame, string(game.Frame))
}

func TestDecodeCommand_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		err   error
	}{
		{name: "not json", frame: `hello`, err: ErrMalformedFrame},
		{name: "array", frame: `[1,2]`, err: ErrMalformedFrame},
		{name: "unknown type", frame: `{"type":"teleport"}`, err: ErrUnknownCommand},
		{name: "missing type", frame: `{"message":"hi"}`, err: ErrUnknownCommand},
		{name: "missing receiver", frame: `{"type":"chat_message","message":"hi"}`, err: ErrInvalidCommand},
		{name: "missing body", frame: `{"type":"chat_message","receiver_username":"bob"}`, err: ErrInvalidCommand},
		{name: "zero group", frame: `{"type":"group_message","group_id":0,"message":"x"}`, err: ErrInvalidCommand},
		{name: "wrong field type", frame: `{"type":"delete_message","message_id":"seven"}`, err: ErrMalformedFrame},
		{name: "schedule without body", frame: `{"type":"schedule_message","receiver_username":"bob"}`, err: ErrInvalidCommand},
		{name: "call without target", frame: `{"type":"call_offer","sdp":"x"}`, err: ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(tt.frame))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
