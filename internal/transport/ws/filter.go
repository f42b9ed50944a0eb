package ws

import (
	"context"
	"strings"

	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/service"
)

// Deliverable decides whether ev goes to a session of username. Group
// membership is asked fresh on every call.
func Deliverable(ctx context.Context, m service.Membership, username string, ev domain.ChatEvent) (bool, error) {
	switch e := ev.(type) {
	case domain.GroupEvent:
		return m.IsMember(ctx, e.GroupID, username)
	case domain.DirectEvent:
		if e.Sender == domain.SystemSender {
			return strings.EqualFold(e.Receiver, username), nil
		}
		return strings.EqualFold(e.Sender, username) || strings.EqualFold(e.Receiver, username), nil
	case domain.PatchEvent:
		return strings.EqualFold(e.Receiver, username), nil
	case domain.SystemTargetedEvent:
		return strings.EqualFold(e.Receiver, username), nil
	default:
		return false, nil
	}
}

// Mask renders ev for the wire, hiding the sender of ghost-mode group events.
func Mask(ctx context.Context, m service.Membership, ev domain.ChatEvent) (domain.ChatMessage, error) {
	msg := domain.Wire(ev)

	g, ok := ev.(domain.GroupEvent)
	if !ok {
		return msg, nil
	}
	ghost, err := m.GhostMode(ctx, g.GroupID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if ghost {
		msg.SenderUsername = domain.AnonymousSender
	}
	return msg, nil
}
