package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/service"
)

var errDB = errors.New("db down")

type fakePeer struct {
	username string
	frames   [][]byte
}

func (p *fakePeer) Username() string { return p.username }

func (p *fakePeer) Reply(v any) {
	data, _ := json.Marshal(v)
	p.frames = append(p.frames, data)
}

func (p *fakePeer) Deliver(frame []byte) bool {
	p.frames = append(p.frames, frame)
	return true
}

func (p *fakePeer) last(t *testing.T) map[string]any {
	t.Helper()
	require.NotEmpty(t, p.frames)
	var out map[string]any
	require.NoError(t, json.Unmarshal(p.frames[len(p.frames)-1], &out))
	return out
}

type fakeMessenger struct {
	direct    []service.SendDirectInput
	edits     []int64
	err       error
	history   []domain.ChatMessage
	publisher Publisher
}

func (f *fakeMessenger) SendDirect(_ context.Context, sender string, in service.SendDirectInput) (*domain.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.direct = append(f.direct, in)
	id := int64(len(f.direct))
	if f.publisher != nil {
		f.publisher.Publish(domain.DirectEvent{ID: id, Sender: sender, Receiver: in.Receiver, Body: in.Body})
	}
	return &domain.Message{ID: id}, nil
}

func (f *fakeMessenger) SendGroup(_ context.Context, sender string, in service.SendGroupInput) (*domain.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.publisher != nil {
		f.publisher.Publish(domain.GroupEvent{ID: 100, GroupID: in.GroupID, Sender: sender, Body: in.Body})
	}
	return &domain.Message{ID: 100}, nil
}

func (f *fakeMessenger) Conversation(context.Context, string, string) ([]domain.ChatMessage, error) {
	return f.history, f.err
}

func (f *fakeMessenger) GroupConversation(context.Context, string, int64) ([]domain.ChatMessage, error) {
	return f.history, f.err
}

func (f *fakeMessenger) Edit(_ context.Context, _ string, id int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.edits = append(f.edits, id)
	return nil
}

func (f *fakeMessenger) Delete(context.Context, string, int64) error { return f.err }

type fakeReactor struct {
	reactions map[string][]string
	pins      []domain.Pin
	err       error
}

func (f *fakeReactor) AddReaction(context.Context, string, int64, string) error    { return f.err }
func (f *fakeReactor) RemoveReaction(context.Context, string, int64, string) error { return f.err }
func (f *fakeReactor) Pin(context.Context, string, int64) error                    { return f.err }
func (f *fakeReactor) Unpin(context.Context, int64) error                          { return f.err }

func (f *fakeReactor) Reactions(context.Context, int64) (map[string][]string, error) {
	return f.reactions, f.err
}

func (f *fakeReactor) Pinned(context.Context) ([]domain.Pin, error) {
	return f.pins, f.err
}

type fakeScheduler struct {
	err error
}

func (f fakeScheduler) Schedule(_ context.Context, _ string, in service.ScheduleInput) (*domain.ScheduledMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if in.Receiver == nil && in.GroupID == nil {
		return nil, service.ErrMissingTarget
	}
	due := int64(1700000000)
	if in.ScheduledAtEpoch != nil {
		due = *in.ScheduledAtEpoch
	}
	return &domain.ScheduledMessage{ID: 1, DueEpoch: &due}, nil
}

type recordingPublisher struct {
	events []domain.ChatEvent
}

func (p *recordingPublisher) Publish(ev domain.ChatEvent) {
	p.events = append(p.events, ev)
}

type dispatchFixture struct {
	messages  *fakeMessenger
	reactions *fakeReactor
	published *recordingPublisher
	d         *Dispatcher
	peer      *fakePeer
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		messages:  &fakeMessenger{},
		reactions: &fakeReactor{},
		published: &recordingPublisher{},
		peer:      &fakePeer{username: "alice"},
	}
	f.d = NewDispatcher(f.messages, f.reactions, fakeScheduler{}, nil, f.published)
	f.d.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestDispatch_SendDirectRepliesNothing(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()

	f.d.Dispatch(context.Background(), f.peer, SendDirect{Receiver: "bob", Message: "hi", RevealAfterSecs: ptr(int64(5))})

	req.Len(f.messages.direct, 1)
	req.Equal("bob", f.messages.direct[0].Receiver)
	req.Equal(int64(5), *f.messages.direct[0].Reveal.RevealAfterSecs)
	req.Empty(f.peer.frames)
}

func TestDispatch_ScheduleAck(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()

	// When a target is given
	f.d.Dispatch(context.Background(), f.peer, ScheduleMessage{Message: "later", GroupID: ptr(int64(7)), ScheduledAtEpoch: ptr(int64(42))})

	// Then the ack carries the due epoch
	req.Equal(map[string]any{"type": "schedule_ack", "ok": true, "scheduled_for_epoch": 42.0}, f.peer.last(t))

	// When no target is given
	f.d.Dispatch(context.Background(), f.peer, ScheduleMessage{Message: "later"})

	// Then the ack reports it
	req.Equal(map[string]any{"type": "schedule_ack", "ok": false, "error": "Missing receiver or group_id"}, f.peer.last(t))
}

func TestDispatch_ScheduleIntoForeignGroupIsRefused(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()
	f.d.scheduler = fakeScheduler{err: service.ErrNotGroupMember}

	f.d.Dispatch(context.Background(), f.peer, ScheduleMessage{Message: "sneaky", GroupID: ptr(int64(7))})

	req.Equal(map[string]any{"type": "schedule_ack", "ok": false, "error": "Not a member of this group"}, f.peer.last(t))
	req.Empty(f.published.events)
}

func TestDispatch_GroupHistoryForOutsiderIsEmpty(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()
	f.messages.err = service.ErrNotGroupMember

	f.d.Dispatch(context.Background(), f.peer, GetGroupConversation{GroupID: 9})

	// Then the requester still gets an answer, with no messages
	req.Len(f.peer.frames, 1)
	req.JSONEq(`{"type":"group_conversation_history","group_id":9,"messages":[]}`, string(f.peer.frames[0]))
}

func TestDispatch_HistoryRepliesToRequester(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()
	f.messages.history = []domain.ChatMessage{{ID: 1, SenderUsername: "bob", ReceiverUsername: "alice", Message: "yo"}}

	f.d.Dispatch(context.Background(), f.peer, GetConversation{Peer: "bob"})

	got := f.peer.last(t)
	req.Equal("conversation_history", got["type"])
	req.Equal("bob", got["conversation_with"])
	req.Len(got["messages"], 1)
	req.Empty(f.published.events)

	f.d.Dispatch(context.Background(), f.peer, GetGroupConversation{GroupID: 9})
	got = f.peer.last(t)
	req.Equal("group_conversation_history", got["type"])
	req.Equal(9.0, got["group_id"])
}

func TestDispatch_ReactionsAndPinsLists(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()
	f.reactions.reactions = map[string][]string{"👍": {"alice", "bob"}}
	f.reactions.pins = []domain.Pin{{MessageID: 4, PinnedBy: "bob", PinnedAt: "2024-05-01T12:00:00.000Z"}}

	f.d.Dispatch(context.Background(), f.peer, GetReactions{MessageID: 4})
	req.JSONEq(`{"type":"reactions_list","message_id":4,"reactions":{"👍":["alice","bob"]}}`, string(f.peer.frames[0]))

	f.d.Dispatch(context.Background(), f.peer, GetPinnedMessages{})
	req.JSONEq(`{"type":"pinned_messages_list","pinned_messages":[{"message_id":4,"pinned_by":"bob","pinned_at":"2024-05-01T12:00:00.000Z"}]}`, string(f.peer.frames[1]))
}

func TestDispatch_CallSignalPublishesTargetedEvent(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()

	f.d.Dispatch(context.Background(), f.peer, CallSignal{Type: CmdCallOffer, Target: "bob", SDP: ptr("v=0")})

	req.Len(f.published.events, 1)
	ev, ok := f.published.events[0].(domain.SystemTargetedEvent)
	req.True(ok)
	req.Equal("bob", ev.Receiver)
	req.JSONEq(`{"type":"call_offer","from":"alice","to":"bob","sdp":"v=0","candidate":null}`, string(ev.Payload))
	req.Equal("2024-05-01T12:00:00.000Z", ev.Timestamp)
}

func TestDispatch_GamesUnavailable(t *testing.T) {
	req := require.New(t)
	f := newDispatchFixture()

	f.d.Dispatch(context.Background(), f.peer, GameCommand{Type: CmdCreateGame, Frame: json.RawMessage(`{"type":"create_game"}`)})

	req.Equal(map[string]any{"type": "game_error", "error": "games are not available"}, f.peer.last(t))
}

func TestDispatch_Failures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantReply bool
	}{
		{name: "ownership refusal is silent", err: service.ErrNotMessageOwner},
		{name: "membership refusal is silent", err: service.ErrNotGroupMember},
		{name: "storage failure is reported", err: errDB, wantReply: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newDispatchFixture()
			f.messages.err = tt.err

			f.d.Dispatch(context.Background(), f.peer, EditMessage{MessageID: 1, Message: "x"})

			if !tt.wantReply {
				req.Empty(f.peer.frames)
				return
			}
			req.Equal(map[string]any{
				"type":    "error",
				"code":    "STORAGE",
				"message": "Could not complete edit_message",
			}, f.peer.last(t))
		})
	}
}
