package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IntentStatus mirrors the provider-side lifecycle of a payment intent.
type IntentStatus string

const (
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// Reusable reports whether an existing intent in this status may still be
// confirmed by the customer, i.e. it must be reused rather than replaced.
func (s IntentStatus) Reusable() bool {
	switch s {
	case IntentCanceled, IntentRequiresPaymentMethod:
		return false
	}
	return true
}

// Intent is the provider-side object representing a pending or completed
// charge, referenced by id for idempotent reuse. ApplicationFeeCents and
// Destination echo the split the intent was created with, so a reused
// intent reports the split that will actually settle.
type Intent struct {
	ID                  string
	ClientSecret        string
	AmountCents         int64
	Currency            string
	Status              IntentStatus
	ApplicationFeeCents int64
	Destination         string
}

// CreateIntentParams describes a new authorization. When Destination is
// non-empty the provider retains ApplicationFeeCents as the platform fee and
// routes the remainder to the destination account on capture.
type CreateIntentParams struct {
	AmountCents         int64
	Currency            string
	BookingID           uuid.UUID
	CustomerID          uuid.UUID
	Destination         string
	ApplicationFeeCents int64
	// CaptureNow requests immediate capture; otherwise the authorization is
	// held for manual capture when the job reaches awaiting_payment.
	CaptureNow bool
}

// Gateway is the narrow contract against the payment provider. All calls
// carry a bounded timeout through ctx; a timeout is a retryable failure and
// never treated as success.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CaptureIntent(ctx context.Context, id string) (*Intent, error)
}

// ConnectedAccount is a pro's destination account enabling split payment.
type ConnectedAccount struct {
	ProID          uuid.UUID
	AccountID      string
	ChargesEnabled bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccountRepository stores pro connected payment accounts.
type AccountRepository interface {
	// FindByProID returns the pro's connected account, or a NotFound domain
	// error when the pro has not linked one.
	FindByProID(ctx context.Context, proID uuid.UUID) (*ConnectedAccount, error)

	// Upsert creates or updates the pro's connected account.
	Upsert(ctx context.Context, account *ConnectedAccount) error
}
