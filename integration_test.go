//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingEvents "github.com/ProLink-Marketplace/service-booking/internal/events"
)

// TestIntentSucceeded_CompletesBooking verifies that when the provider's
// webhook bridge publishes payment.intent.succeeded to payment.events, the
// consumer picks it up, marks the booking paid and transitions it to
// "completed".
func TestIntentSucceeded_CompletesBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupPaymentStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	// Seed a booking in "awaiting_payment" with a stored intent.
	bookingID := uuid.New()
	customerID := uuid.New()
	proID := uuid.New()
	intentID := "pi_" + uuid.New().String()[:12]
	seedBookingAwaitingPayment(t, infra.DB, bookingID, customerID, proID, intentID)

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	// Publish the capture confirmation.
	evt := bookingEvents.IntentSucceededEvent{
		IntentID:    intentID,
		BookingID:   bookingID,
		AmountCents: 15000,
		Currency:    "usd",
		OccurredAt:  time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, bookingEvents.TopicPaymentEvents,
		"payment-webhook-bridge", bookingEvents.PaymentIntentSucceeded, evt)

	// Assert: booking transitions to "completed" and is marked paid.
	model := waitForBookingStatus(t, infra.DB, bookingID, "completed", 15*time.Second)
	assert.Equal(t, "PAID", model.PaymentStatus)
	require.NotNil(t, model.PaymentIntentID)
	assert.Equal(t, intentID, *model.PaymentIntentID)

	// Assert: the pro is notified on booking.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, bookingEvents.TopicBookingEvents,
		bookingEvents.BookingCompleted, 15*time.Second)

	var notification bookingEvents.BookingNotification
	require.NoError(t, ce.ParseData(&notification))
	assert.Equal(t, bookingID, notification.BookingID)
	assert.Equal(t, proID, notification.RecipientID)
	assert.Equal(t, "completed", notification.Status)
}

// TestIntentSucceeded_IgnoresMismatchedIntent verifies that a confirmation
// carrying an intent id the booking does not reference is dropped without
// touching the booking.
func TestIntentSucceeded_IgnoresMismatchedIntent(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupPaymentStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	bookingID := uuid.New()
	intentID := "pi_" + uuid.New().String()[:12]
	seedBookingAwaitingPayment(t, infra.DB, bookingID, uuid.New(), uuid.New(), intentID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second)

	evt := bookingEvents.IntentSucceededEvent{
		IntentID:    "pi_someone_elses",
		BookingID:   bookingID,
		AmountCents: 15000,
		Currency:    "usd",
		OccurredAt:  time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, bookingEvents.TopicPaymentEvents,
		"payment-webhook-bridge", bookingEvents.PaymentIntentSucceeded, evt)

	// Give the consumer time to process, then check nothing moved.
	time.Sleep(5 * time.Second)
	model := waitForBookingStatus(t, infra.DB, bookingID, "awaiting_payment", 5*time.Second)
	assert.Equal(t, "UNPAID", model.PaymentStatus)
}

// TestAcceptLegacyPendingBooking verifies that a row still stored under the
// deprecated "pending" status can be accepted: the status guard must match
// the alias as well as the canonical name, or the row is stuck forever.
func TestAcceptLegacyPendingBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupPaymentStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	bookingID := uuid.New()
	customerID := uuid.New()
	proID := uuid.New()
	seedBookingLegacyPending(t, infra.DB, bookingID, customerID, proID)

	dto, err := stack.Bookings.AcceptBooking(context.Background(), bookingID, proID)
	require.NoError(t, err)
	assert.Equal(t, "accepted", dto.Status)

	model := waitForBookingStatus(t, infra.DB, bookingID, "accepted", 5*time.Second)
	assert.Equal(t, "accepted", model.Status)
}
