package domain

// ScheduledMessage is a message held back until its due time. Exactly one
// of Receiver and GroupID is set.
type ScheduledMessage struct {
	ID          int64
	Sender      string
	Receiver    *string
	GroupID     *int64
	Body        string
	ScheduledAt string
	DueEpoch    *int64
	Sent        bool
	CreatedAt   string
	SentAt      *string
}

// IsGroup reports whether the row targets a group. A zero group id counts
// as direct.
func (s *ScheduledMessage) IsGroup() bool {
	return s.GroupID != nil && *s.GroupID > 0
}

func (s *ScheduledMessage) ReceiverName() string {
	if s.Receiver == nil {
		return ""
	}
	return *s.Receiver
}
