package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ProLink-Marketplace/service-booking/pkg/kafka"
)

const eventSource = "service-booking"

// KafkaNotifier emits booking notifications as durable Kafka events consumed
// asynchronously by clients. Publish failures are logged and swallowed; the
// triggering transition is already committed by the time Emit runs.
type KafkaNotifier struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewKafkaNotifier creates a KafkaNotifier on booking.events.
func NewKafkaNotifier(producer *kafka.Producer, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, logger: logger}
}

// Emit publishes one event addressed to recipientID.
func (n *KafkaNotifier) Emit(ctx context.Context, recipientID uuid.UUID, eventType string, payload interface{}) {
	ce, err := kafka.NewCloudEvent(eventSource, eventType, payload)
	if err != nil {
		n.logger.Error("failed to build notification event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := n.producer.Publish(ctx, TopicBookingEvents, recipientID.String(), ce); err != nil {
		n.logger.Error("failed to publish notification event",
			zap.String("event_type", eventType),
			zap.String("recipient_id", recipientID.String()),
			zap.Error(err),
		)
	}
}
