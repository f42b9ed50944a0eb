package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMessage_HistoryView(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{name: "plain", msg: Message{Body: "hi"}, want: "hi"},
		{name: "edited", msg: Message{Body: "hi", EditedAt: strPtr("2024-01-01T00:00:00.000Z")}, want: "hi (edited)"},
		{name: "empty edited marker", msg: Message{Body: "hi", EditedAt: strPtr("")}, want: "hi"},
		{name: "deleted", msg: Message{Body: "secret", Deleted: true}, want: RecalledBody},
		{name: "deleted after edit", msg: Message{Body: "secret", Deleted: true, EditedAt: strPtr("x")}, want: RecalledBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.HistoryView().Message)
		})
	}
}

func TestWire_DirectAndGroup(t *testing.T) {
	req := require.New(t)

	direct := Wire(DirectEvent{ID: 4, Sender: "alice", Receiver: "bob", Body: "hi", Timestamp: "t"})
	req.Equal(int64(4), direct.ID)
	req.Nil(direct.GroupID)
	req.Equal("alice", direct.SenderUsername)
	req.Equal("bob", direct.ReceiverUsername)

	group := Wire(GroupEvent{ID: 9, GroupID: 7, Sender: "alice", Body: "hey", Timestamp: "t"})
	req.NotNil(group.GroupID)
	req.Equal(int64(7), *group.GroupID)
	req.Empty(group.ReceiverUsername)
}

func TestWire_ControlEventsBecomeSystemMessages(t *testing.T) {
	req := require.New(t)

	payload, err := json.Marshal(MessageDeletedNotice{Type: NoticeMessageDeleted, MessageID: 3})
	req.NoError(err)

	msg := Wire(PatchEvent{MessageID: 3, Kind: PatchDeleted, Receiver: "alice", Payload: payload, Timestamp: "t"})

	req.Equal(SystemSender, msg.SenderUsername)
	req.Equal("alice", msg.ReceiverUsername)
	req.JSONEq(`{"type":"message_deleted","message_id":3,"group":false}`, msg.Message)
	req.Zero(msg.ID)
}

func TestFormatTimestamp_FixedWidth(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))

	require.Equal(t, "2024-05-01T09:00:00.000Z", FormatTimestamp(ts))
}

func TestIsReservedUsername(t *testing.T) {
	assert.True(t, IsReservedUsername("SYSTEM"))
	assert.True(t, IsReservedUsername("anonymous"))
	assert.False(t, IsReservedUsername("alice"))
}
