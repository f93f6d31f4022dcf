package notify

import (
	"context"
	"fmt"

	"talad/internal/notify/events"
	"talad/internal/rental/repository"
	"talad/pkg/kafka"
	"talad/pkg/logger"
	"talad/pkg/model"
)

// Worker consumes notification events and fans them out: a durable
// inbox row per recipient and channel, a live emit, and an email when
// the policy asks for one.
type Worker struct {
	store        Store
	interestRepo repository.InterestRepository
	queueRepo    repository.QueueRepository
	emitter      Emitter
	email        EmailSender
	log          *logger.Logger
}

func NewWorker(
	store Store,
	interestRepo repository.InterestRepository,
	queueRepo repository.QueueRepository,
	emitter Emitter,
	email EmailSender,
	log *logger.Logger,
) *Worker {
	return &Worker{
		store:        store,
		interestRepo: interestRepo,
		queueRepo:    queueRepo,
		emitter:      emitter,
		email:        email,
		log:          log,
	}
}

// Handle is the kafka message handler. A non-nil return sends the
// message through the retry/DLQ path, so only infrastructure failures
// should bubble up; malformed events are dropped with a log line.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	var event events.Event
	if err := msg.DecodeValue(&event); err != nil {
		w.log.Error("Dropping undecodable notification event",
			"event_id", msg.GetEventID(),
			"error", err,
		)
		return nil
	}

	channels := ChannelsFor(event.Type)
	if len(channels) == 0 {
		return nil
	}

	recipients, err := w.resolveRecipients(ctx, event)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	title, body := Render(event)
	for _, userID := range recipients {
		if err := w.deliver(ctx, userID, event, channels, title, body); err != nil {
			return err
		}
	}

	w.log.Info("Notification event delivered",
		"event_type", event.Type,
		"recipients", len(recipients),
	)
	return nil
}

func (w *Worker) resolveRecipients(ctx context.Context, event events.Event) ([]string, error) {
	if !FanOut(event.Type) {
		if event.UserID == "" {
			w.log.Warn("Notification event without recipient", "event_type", event.Type)
			return nil, nil
		}
		return []string{event.UserID}, nil
	}

	// A freed lock goes to everyone watching its zone or the whole
	// market, minus anyone already queued for it (they get offers).
	entries, err := w.interestRepo.FindByZone(ctx, event.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interest recipients: %w", err)
	}

	queued := make(map[string]bool)
	if event.LockID != "" {
		queueEntries, err := w.queueRepo.FindByLock(ctx, event.LockID)
		if err != nil {
			return nil, fmt.Errorf("failed to load queue for fan-out filter: %w", err)
		}
		for _, entry := range queueEntries {
			queued[entry.UserID] = true
		}
	}

	seen := make(map[string]bool)
	var recipients []string
	for _, entry := range entries {
		if seen[entry.UserID] || queued[entry.UserID] {
			continue
		}
		seen[entry.UserID] = true
		recipients = append(recipients, entry.UserID)
	}
	return recipients, nil
}

func (w *Worker) deliver(ctx context.Context, userID string, event events.Event, channels []string, title, body string) error {
	for _, channel := range channels {
		switch channel {
		case model.ChannelInApp:
			notification := &model.Notification{
				UserID:  userID,
				Type:    event.Type,
				Channel: model.ChannelInApp,
				Title:   title,
				Body:    body,
				Data: map[string]any{
					"lock_id":    event.LockID,
					"booking_id": event.BookingID,
				},
			}
			if err := w.store.Insert(ctx, notification); err != nil {
				return err
			}
			if err := w.emitter.Emit(ctx, notification); err != nil {
				// Inbox row is stored; live delivery is best-effort.
				w.log.Warn("Live emit failed", "user_id", userID, "event_type", event.Type, "error", err)
			}
		case model.ChannelEmail:
			if err := w.email.Send(ctx, userID, title, body); err != nil {
				w.log.Warn("Email delivery failed", "user_id", userID, "event_type", event.Type, "error", err)
			}
		}
	}
	return nil
}
