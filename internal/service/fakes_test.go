package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/vedran77/courier/internal/domain"
)

var errStorage = errors.New("storage unavailable")

type fakeUserRepo struct {
	users []domain.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	u.ID = int64(len(r.users) + 1)
	r.users = append(r.users, *u)
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for i := range r.users {
		if strings.EqualFold(r.users[i].Username, username) {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ListUsernames(context.Context) ([]string, error) {
	var out []string
	for _, u := range r.users {
		out = append(out, u.Username)
	}
	sort.Strings(out)
	return out, nil
}

// fakeMessageRepo serves both direct and group messages.
type fakeMessageRepo struct {
	mu        sync.Mutex
	rows      []domain.Message
	nextID    int64
	createErr error
}

func (r *fakeMessageRepo) Create(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	m.ID = r.nextID
	r.rows = append(r.rows, *m)
	return nil
}

func (r *fakeMessageRepo) ListConversation(_ context.Context, u1, u2 string, limit int) ([]domain.Message, error) {
	return r.filter(limit, func(m domain.Message) bool {
		return (strings.EqualFold(m.Sender, u1) && strings.EqualFold(m.Receiver, u2)) ||
			(strings.EqualFold(m.Sender, u2) && strings.EqualFold(m.Receiver, u1))
	}), nil
}

func (r *fakeMessageRepo) ListByGroup(_ context.Context, groupID int64, limit int) ([]domain.Message, error) {
	return r.filter(limit, func(m domain.Message) bool {
		return m.GroupID != nil && *m.GroupID == groupID
	}), nil
}

func (r *fakeMessageRepo) filter(limit int, keep func(domain.Message) bool) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.rows {
		if keep(m) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (r *fakeMessageRepo) Edit(_ context.Context, id int64, sender, body, editedAt string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		m := &r.rows[i]
		if m.ID == id && m.Sender == sender && !m.Deleted {
			m.Body = body
			m.EditedAt = &editedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMessageRepo) SoftDelete(_ context.Context, id int64, sender string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		m := &r.rows[i]
		if m.ID == id && m.Sender == sender && !m.Deleted {
			m.Deleted = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMessageRepo) get(id int64) domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.ID == id {
			return m
		}
	}
	return domain.Message{}
}

type fakeGroupRepo struct {
	mu      sync.Mutex
	groups  map[int64]*domain.Group
	members map[int64][]string
	nextID  int64
	err     error
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: map[int64]*domain.Group{}, members: map[int64][]string{}}
}

func (r *fakeGroupRepo) Create(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	g.ID = r.nextID
	cp := *g
	r.groups[g.ID] = &cp
	return nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, id int64) (*domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGroupRepo) List(context.Context) ([]domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Group
	for id := int64(1); id <= r.nextID; id++ {
		if g, ok := r.groups[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) Update(_ context.Context, g *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.groups[g.ID] = &cp
	return nil
}

func (r *fakeGroupRepo) AddMember(_ context.Context, groupID int64, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[groupID] {
		if strings.EqualFold(m, username) {
			return false, nil
		}
	}
	r.members[groupID] = append(r.members[groupID], username)
	return true, nil
}

func (r *fakeGroupRepo) RemoveMember(_ context.Context, groupID int64, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.members[groupID]
	for i, m := range ms {
		if strings.EqualFold(m, username) {
			r.members[groupID] = append(ms[:i:i], ms[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGroupRepo) IsMember(_ context.Context, groupID int64, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for _, m := range r.members[groupID] {
		if strings.EqualFold(m, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGroupRepo) GhostMode(_ context.Context, groupID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[groupID]; ok {
		return g.GhostMode, nil
	}
	return false, nil
}

func (r *fakeGroupRepo) ListMembers(_ context.Context, groupID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.members[groupID]...), nil
}

type fakeScheduledRepo struct {
	rows        []domain.ScheduledMessage
	markSentErr error
}

func (r *fakeScheduledRepo) Create(_ context.Context, s *domain.ScheduledMessage) error {
	s.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, *s)
	return nil
}

func (r *fakeScheduledRepo) ListDue(_ context.Context, nowEpoch int64, nowISO string, limit int) ([]domain.ScheduledMessage, error) {
	var out []domain.ScheduledMessage
	for _, s := range r.rows {
		if s.Sent {
			continue
		}
		due := (s.DueEpoch != nil && *s.DueEpoch <= nowEpoch) || (s.DueEpoch == nil && s.ScheduledAt <= nowISO)
		if due {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeScheduledRepo) MarkSent(_ context.Context, id int64, sentAt string) error {
	if r.markSentErr != nil {
		return r.markSentErr
	}
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Sent = true
			r.rows[i].SentAt = &sentAt
		}
	}
	return nil
}

type fakeReactionRepo struct {
	rows []domain.Reaction
	err  error
}

func (r *fakeReactionRepo) Add(_ context.Context, re *domain.Reaction) error {
	if r.err != nil {
		return r.err
	}
	for _, x := range r.rows {
		if x.MessageID == re.MessageID && x.Username == re.Username && x.Emoji == re.Emoji {
			return nil
		}
	}
	r.rows = append(r.rows, *re)
	return nil
}

func (r *fakeReactionRepo) Remove(_ context.Context, messageID int64, username, emoji string) error {
	if r.err != nil {
		return r.err
	}
	kept := r.rows[:0]
	for _, x := range r.rows {
		if !(x.MessageID == messageID && x.Username == username && x.Emoji == emoji) {
			kept = append(kept, x)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeReactionRepo) ListByMessage(ctx context.Context, messageID int64) ([]domain.Reaction, error) {
	return r.ListByMessages(ctx, []int64{messageID})
}

func (r *fakeReactionRepo) ListByMessages(_ context.Context, ids []int64) ([]domain.Reaction, error) {
	var out []domain.Reaction
	for _, x := range r.rows {
		for _, id := range ids {
			if x.MessageID == id {
				out = append(out, x)
			}
		}
	}
	return out, nil
}

type fakePinRepo struct {
	pins []domain.Pin
}

func (r *fakePinRepo) Pin(_ context.Context, p *domain.Pin) error {
	for _, x := range r.pins {
		if x.MessageID == p.MessageID {
			return nil
		}
	}
	r.pins = append(r.pins, *p)
	return nil
}

func (r *fakePinRepo) Unpin(_ context.Context, messageID int64) error {
	kept := r.pins[:0]
	for _, x := range r.pins {
		if x.MessageID != messageID {
			kept = append(kept, x)
		}
	}
	r.pins = kept
	return nil
}

func (r *fakePinRepo) List(context.Context) ([]domain.Pin, error) {
	out := append([]domain.Pin(nil), r.pins...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PinnedAt > out[j].PinnedAt })
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	events  []domain.ChatEvent
	notices []any
}

func (n *recordingNotifier) Publish(ev domain.ChatEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) NotifyAll(notice any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) published() []domain.ChatEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ChatEvent(nil), n.events...)
}
