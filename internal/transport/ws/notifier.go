package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/pkg/log"
)

const notifyTimeout = 5 * time.Second

// BusNotifier implements service.Notifier on top of the bus and registry.
type BusNotifier struct {
	bus      *Bus
	registry *Registry
	now      func() time.Time
}

func NewBusNotifier(bus *Bus, registry *Registry) *BusNotifier {
	return &BusNotifier{bus: bus, registry: registry, now: time.Now}
}

func (n *BusNotifier) Publish(ev domain.ChatEvent) {
	n.bus.Publish(ev)
}

// NotifyAll sends notice to every registered session as a system message
// addressed to that session's user. The registry is only held for the
// snapshot; the sends happen afterwards.
func (n *BusNotifier) NotifyAll(notice any) {
	payload, err := json.Marshal(notice)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Msg("encoding notice")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	sessions, err := n.registry.Snapshot(ctx)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("snapshot for notice failed")
		return
	}

	ts := domain.FormatTimestamp(n.now())
	for _, s := range sessions {
		frame, err := json.Marshal(domain.Wire(domain.SystemTargetedEvent{
			Receiver:  s.Username(),
			Payload:   payload,
			Timestamp: ts,
		}))
		if err != nil {
			continue
		}
		s.Deliver(frame)
	}
}
