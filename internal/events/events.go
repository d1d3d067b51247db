package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Event types published on booking.events. Each doubles as a notification to
// the counterparty: clients consume the topic asynchronously and render the
// payload for RecipientID.
const (
	BookingRequested       = "booking.requested"
	BookingAccepted        = "booking.accepted"
	BookingDeclined        = "booking.declined"
	BookingProOnTheWay     = "booking.pro_on_the_way"
	BookingStarted         = "booking.started"
	BookingPaymentRequired = "booking.payment_required"
	BookingCancelled       = "booking.cancelled"
	BookingCompleted       = "booking.completed"
	PaymentAuthorized      = "booking.payment_authorized"
)

// Event types consumed from payment.events (published by the webhook bridge
// that receives provider callbacks).
const (
	PaymentIntentSucceeded = "payment.intent.succeeded"
)

// BookingNotification is the payload for every booking.events entry.
type BookingNotification struct {
	BookingID   uuid.UUID `json:"booking_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ProID       uuid.UUID `json:"pro_id"`
	Status      string    `json:"status"`
	ServiceName string    `json:"service_name"`
	Note        string    `json:"note,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// IntentSucceededEvent is the inbound payload confirming a captured payment.
type IntentSucceededEvent struct {
	IntentID    string    `json:"intent_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}
