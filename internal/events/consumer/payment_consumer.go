package consumer

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ProLink-Marketplace/service-booking/internal/application"
	"github.com/ProLink-Marketplace/service-booking/internal/events"
	"github.com/ProLink-Marketplace/service-booking/pkg/kafka"
)

// PaymentEventConsumer listens to provider payment confirmations (bridged
// from the provider's webhooks onto payment.events) and finalizes the
// affected bookings out-of-band.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  *application.PaymentService
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service *application.PaymentService,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. Blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.PaymentIntentSucceeded:
		return c.handleIntentSucceeded(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handleIntentSucceeded(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.IntentSucceededEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse IntentSucceededEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing payment intent succeeded event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("intent_id", evt.IntentID),
	)

	if err := c.service.HandleIntentSucceeded(ctx, evt.BookingID, evt.IntentID); err != nil {
		c.logger.Error("failed to finalize booking after payment confirmation",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}

	return nil
}
