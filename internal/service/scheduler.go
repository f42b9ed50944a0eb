package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/metrics"
	"github.com/vedran77/courier/internal/repository"
	"github.com/vedran77/courier/pkg/log"
)

var ErrMissingTarget = errors.New("missing receiver or group_id")

// defaultScheduleDelay applies when no usable due time is given.
const defaultScheduleDelay = 60 * time.Second

// Epochs outside years 1 to 9999 have no RFC3339 form.
const (
	minDueEpoch = -62135596800
	maxDueEpoch = 253402300799
)

// Scheduler stores delayed messages and promotes them once due. Promotion
// is at-least-once: a failure between publishing and marking the row sent
// delivers the message again on a later tick.
type Scheduler struct {
	scheduledRepo repository.ScheduledRepository
	messages      *MessageService
	metrics       *metrics.Metrics
	interval      time.Duration
	batchSize     int
	now           func() time.Time
}

func NewScheduler(
	scheduledRepo repository.ScheduledRepository,
	messages *MessageService,
	m *metrics.Metrics,
	interval time.Duration,
	batchSize int,
) *Scheduler {
	return &Scheduler{
		scheduledRepo: scheduledRepo,
		messages:      messages,
		metrics:       m,
		interval:      interval,
		batchSize:     batchSize,
		now:           time.Now,
	}
}

type ScheduleInput struct {
	Body             string
	Receiver         *string
	GroupID          *int64
	ScheduledAt      *string
	ScheduledAtEpoch *int64
}

// Schedule stores a message for later delivery and returns the stored row.
func (s *Scheduler) Schedule(ctx context.Context, sender string, input ScheduleInput) (*domain.ScheduledMessage, error) {
	hasReceiver := input.Receiver != nil && strings.TrimSpace(*input.Receiver) != ""
	hasGroup := input.GroupID != nil && *input.GroupID > 0
	if !hasReceiver && !hasGroup {
		return nil, ErrMissingTarget
	}
	if hasGroup {
		if err := s.messages.requireMember(ctx, *input.GroupID, sender); err != nil {
			return nil, err
		}
	}

	now := s.now()
	due := dueEpoch(now, input.ScheduledAt, input.ScheduledAtEpoch)

	row := &domain.ScheduledMessage{
		Sender:      sender,
		Body:        input.Body,
		ScheduledAt: domain.FormatTimestamp(time.Unix(due, 0)),
		DueEpoch:    &due,
		CreatedAt:   domain.FormatTimestamp(now),
	}
	if hasGroup {
		row.GroupID = input.GroupID
	} else {
		row.Receiver = input.Receiver
	}

	if err := s.scheduledRepo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("storing scheduled message: %w", err)
	}
	return row, nil
}

// dueEpoch prefers the client's epoch, then an RFC3339 timestamp, then now
// plus the default delay. Out-of-range epochs count as missing.
func dueEpoch(now time.Time, at *string, epoch *int64) int64 {
	if epoch != nil && *epoch >= minDueEpoch && *epoch <= maxDueEpoch {
		return *epoch
	}
	if at != nil {
		if t, err := time.Parse(time.RFC3339, *at); err == nil {
			return t.Unix()
		}
	}
	return now.Add(defaultScheduleDelay).Unix()
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := log.Ctx(ctx).With().Str(log.FieldService, "scheduler").Logger()
	logger.Info().Dur("interval", s.interval).Int("batch_size", s.batchSize).Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("scheduler tick failed")
			}
		}
	}
}

// Tick promotes at most one batch of due rows and returns how many made it.
// A failing row is left unsent and does not stop the batch.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.scheduledRepo.ListDue(ctx, now.Unix(), domain.FormatTimestamp(now), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing due messages: %w", err)
	}

	logger := log.Ctx(ctx)
	promoted := 0
	for i := range due {
		row := &due[i]
		delivered, err := s.promote(ctx, row, now)
		if err != nil {
			s.metrics.ScheduledFailed()
			logger.Error().Err(err).Int64(log.FieldSchedule, row.ID).Msg("promoting scheduled message")
			continue
		}
		if !delivered {
			logger.Info().
				Int64(log.FieldSchedule, row.ID).
				Int64(log.FieldGroupID, *row.GroupID).
				Str(log.FieldUsername, row.Sender).
				Msg("sender left the group, scheduled message dropped")
			continue
		}
		s.metrics.ScheduledPromoted()
		promoted++
	}
	return promoted, nil
}

// promote delivers one due row and marks it sent. A group row whose sender
// is no longer a member is retired without delivery and reports false.
func (s *Scheduler) promote(ctx context.Context, row *domain.ScheduledMessage, now time.Time) (bool, error) {
	sentAt := domain.FormatTimestamp(now)

	var err error
	if row.IsGroup() {
		err = s.messages.requireMember(ctx, *row.GroupID, row.Sender)
		if errors.Is(err, ErrNotGroupMember) {
			if err := s.scheduledRepo.MarkSent(ctx, row.ID, sentAt); err != nil {
				return false, fmt.Errorf("retiring scheduled message %d: %w", row.ID, err)
			}
			return false, nil
		}
		if err != nil {
			return false, err
		}
		_, err = s.messages.storeGroup(ctx, row.Sender, *row.GroupID, row.Body, now, nil)
	} else {
		_, err = s.messages.storeDirect(ctx, row.Sender, row.ReceiverName(), row.Body, now, nil)
	}
	if err != nil {
		return false, err
	}

	if err := s.scheduledRepo.MarkSent(ctx, row.ID, sentAt); err != nil {
		return false, fmt.Errorf("marking scheduled message %d sent: %w", row.ID, err)
	}
	return true, nil
}
