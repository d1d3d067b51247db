package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// PaymentStatus tracks how far the customer's payment has progressed.
type PaymentStatus string

const (
	PaymentUnpaid         PaymentStatus = "UNPAID"
	PaymentRequiresAction PaymentStatus = "REQUIRES_ACTION"
	PaymentPaid           PaymentStatus = "PAID"
)

// StatusChange is one entry in the append-only status history.
type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Booking is the aggregate root for one customer-to-pro service engagement.
// The customer and pro are fixed at creation; everything else mutates only
// through the transition methods below.
type Booking struct {
	id          uuid.UUID
	customerID  uuid.UUID
	proID       uuid.UUID
	serviceName string
	status      Status
	history     []StatusChange

	price    float64
	currency string

	paymentIntentID *string
	paymentStatus   PaymentStatus

	acceptedAt  *time.Time
	enRouteAt   *time.Time
	startedAt   *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
	cancelNote  string
	notes       string

	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a Booking in the requested state with its first
// history entry.
func NewBooking(customerID, proID uuid.UUID, serviceName string, price float64, currency, notes string) (*Booking, error) {
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if proID == uuid.Nil {
		return nil, domain.NewValidationError("pro ID is required")
	}
	if serviceName == "" {
		return nil, domain.NewValidationError("service name is required")
	}
	if price <= 0 {
		return nil, domain.NewValidationError("price must be positive")
	}

	now := time.Now().UTC()
	return &Booking{
		id:            uuid.New(),
		customerID:    customerID,
		proID:         proID,
		serviceName:   serviceName,
		status:        StatusRequested,
		history:       []StatusChange{{Status: StatusRequested, At: now}},
		price:         price,
		currency:      currency,
		paymentStatus: PaymentUnpaid,
		notes:         notes,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(
	id, customerID, proID uuid.UUID,
	serviceName string,
	status Status,
	history []StatusChange,
	price float64,
	currency string,
	paymentIntentID *string,
	paymentStatus PaymentStatus,
	acceptedAt, enRouteAt, startedAt, completedAt, cancelledAt *time.Time,
	cancelNote, notes string,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		customerID:      customerID,
		proID:           proID,
		serviceName:     serviceName,
		status:          status,
		history:         history,
		price:           price,
		currency:        currency,
		paymentIntentID: paymentIntentID,
		paymentStatus:   paymentStatus,
		acceptedAt:      acceptedAt,
		enRouteAt:       enRouteAt,
		startedAt:       startedAt,
		completedAt:     completedAt,
		cancelledAt:     cancelledAt,
		cancelNote:      cancelNote,
		notes:           notes,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// CustomerID returns the owning customer's user ID.
func (b *Booking) CustomerID() uuid.UUID { return b.customerID }

// ProID returns the assigned pro's user ID.
func (b *Booking) ProID() uuid.UUID { return b.proID }

// ServiceName returns the requested service.
func (b *Booking) ServiceName() string { return b.serviceName }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.status }

// History returns the append-only status history.
func (b *Booking) History() []StatusChange { return b.history }

// Price returns the agreed price in major currency units.
func (b *Booking) Price() float64 { return b.price }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// PaymentIntentID returns the provider intent id, or nil if none exists.
func (b *Booking) PaymentIntentID() *string { return b.paymentIntentID }

// PaymentStatus returns the payment progress.
func (b *Booking) PaymentStatus() PaymentStatus { return b.paymentStatus }

// AcceptedAt returns when the pro accepted, or nil.
func (b *Booking) AcceptedAt() *time.Time { return b.acceptedAt }

// EnRouteAt returns when the pro set off, or nil.
func (b *Booking) EnRouteAt() *time.Time { return b.enRouteAt }

// StartedAt returns when work started, or nil.
func (b *Booking) StartedAt() *time.Time { return b.startedAt }

// CompletedAt returns when work finished, or nil.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns when the booking was cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// Notes returns free-form notes from the customer.
func (b *Booking) Notes() string { return b.notes }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Transitions ---

// transition validates and applies a status change. The history entry is
// skipped when the last entry already holds the target status, so replayed
// deliveries never append duplicates.
func (b *Booking) transition(target Status) error {
	if !b.status.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	now := time.Now().UTC()
	b.status = target
	if last := len(b.history) - 1; last < 0 || b.history[last].Status != target {
		b.history = append(b.history, StatusChange{Status: target, At: now})
	}
	b.updatedAt = now
	return nil
}

// firstWrite sets a timestamp field only the first time the corresponding
// transition fires; it is never overwritten.
func firstWrite(field **time.Time, at time.Time) {
	if *field == nil {
		t := at
		*field = &t
	}
}

// Accept transitions requested -> accepted, setting acceptedAt once.
func (b *Booking) Accept() error {
	if err := b.transition(StatusAccepted); err != nil {
		return err
	}
	firstWrite(&b.acceptedAt, b.updatedAt)
	return nil
}

// Decline transitions requested -> declined.
func (b *Booking) Decline() error {
	return b.transition(StatusDeclined)
}

// MarkOnTheWay transitions accepted -> on_the_way, setting enRouteAt once.
func (b *Booking) MarkOnTheWay() error {
	if err := b.transition(StatusOnTheWay); err != nil {
		return err
	}
	firstWrite(&b.enRouteAt, b.updatedAt)
	return nil
}

// Start transitions accepted or on_the_way -> in_progress, setting startedAt once.
func (b *Booking) Start() error {
	if err := b.transition(StatusInProgress); err != nil {
		return err
	}
	firstWrite(&b.startedAt, b.updatedAt)
	return nil
}

// Complete transitions in_progress -> awaiting_payment, setting completedAt
// once. The booking only becomes completed after payment is captured.
func (b *Booking) Complete() error {
	if err := b.transition(StatusAwaitingPayment); err != nil {
		return err
	}
	firstWrite(&b.completedAt, b.updatedAt)
	return nil
}

// Finalize transitions awaiting_payment -> completed after the payment
// provider confirms capture.
func (b *Booking) Finalize() error {
	return b.transition(StatusCompleted)
}

// Cancel transitions any non-terminal, pre-completed status -> cancelled.
func (b *Booking) Cancel(reason string) error {
	if err := b.transition(StatusCancelled); err != nil {
		return err
	}
	firstWrite(&b.cancelledAt, b.updatedAt)
	b.cancelNote = reason
	return nil
}

// --- Payment bookkeeping ---

// RecordPaymentIntent stores the provider intent id and the payment status
// derived from the provider's report. Reuse-vs-recreate of an existing
// intent is decided by the payment orchestration, not here.
func (b *Booking) RecordPaymentIntent(intentID string, status PaymentStatus) {
	b.paymentIntentID = &intentID
	b.paymentStatus = status
	b.updatedAt = time.Now().UTC()
}

// MarkPaid records a provider-confirmed capture.
func (b *Booking) MarkPaid() {
	b.paymentStatus = PaymentPaid
	b.updatedAt = time.Now().UTC()
}
