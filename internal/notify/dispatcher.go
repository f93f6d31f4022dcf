package notify

import (
	"context"
	"time"

	"talad/internal/notify/events"
	"talad/pkg/kafka"
	"talad/pkg/logger"
)

// Dispatcher publishes domain events onto the notification topic. The
// rental service never blocks a user request on delivery; a failed
// dispatch is logged and dropped, the sweepers re-derive what matters.
type Dispatcher interface {
	Dispatch(ctx context.Context, event events.Event) error
}

type kafkaDispatcher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaDispatcher(producer *kafka.Producer, source string, log *logger.Logger) Dispatcher {
	return &kafkaDispatcher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (d *kafkaDispatcher) Dispatch(ctx context.Context, event events.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	// Fan-out events have no single recipient; key by lock so the
	// consumer sees one lock's events in order.
	key := event.UserID
	if key == "" {
		key = event.LockID
	}

	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(d.source).
		Build()

	if err := d.producer.Publish(ctx, msg); err != nil {
		d.log.Error("Failed to dispatch notification event",
			"event_type", event.Type,
			"user_id", event.UserID,
			"lock_id", event.LockID,
			"error", err,
		)
		return err
	}

	return nil
}

// NoopDispatcher drops all events. Used when Kafka is not configured.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(ctx context.Context, event events.Event) error {
	return nil
}
