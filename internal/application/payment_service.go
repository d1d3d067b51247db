package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/ProLink-Marketplace/service-booking/internal/domain/booking"
	"github.com/ProLink-Marketplace/service-booking/internal/domain/payment"
	"github.com/ProLink-Marketplace/service-booking/internal/events"
	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// PaymentAuthorizationDTO is returned from authorize/pay operations. The
// client secret is the provider-side confirmation token the customer's
// client uses to complete the payment.
type PaymentAuthorizationDTO struct {
	PaymentIntentID     string  `json:"payment_intent_id"`
	ClientSecret        string  `json:"client_secret,omitempty"`
	AmountCents         int64   `json:"amount_cents"`
	ApplicationFeeCents int64   `json:"application_fee_cents,omitempty"`
	DestinationAccount  string  `json:"destination_account,omitempty"`
	Currency            string  `json:"currency"`
	PaymentStatus       string  `json:"payment_status"`
	BookingStatus       string  `json:"booking_status"`
}

// PaymentAccountDTO is the response representation of a pro's connected account.
type PaymentAccountDTO struct {
	ProID          uuid.UUID `json:"pro_id"`
	AccountID      string    `json:"account_id"`
	ChargesEnabled bool      `json:"charges_enabled"`
}

// PaymentService orchestrates payment authorization and capture. The charge
// amount is always recomputed server-side from the persisted price; the
// split to a pro's connected account is decided here, not by the client.
type PaymentService struct {
	bookings bookingDomain.Repository
	accounts payment.AccountRepository
	gateway  payment.Gateway
	fees     payment.FeePolicy
	notifier Notifier
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService. Gateway may be nil when
// the provider is not configured; payment operations then fail with
// ServiceUnavailable.
func NewPaymentService(
	bookings bookingDomain.Repository,
	accounts payment.AccountRepository,
	gateway payment.Gateway,
	fees payment.FeePolicy,
	notifier Notifier,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		accounts: accounts,
		gateway:  gateway,
		fees:     fees,
		notifier: notifier,
		logger:   logger,
	}
}

// AuthorizePayment creates or reuses a payment intent for the booking. Valid
// while the booking is in accepted, on_the_way or in_progress (pre-capture
// authorization, manual capture) or awaiting_payment (final charge).
func (s *PaymentService) AuthorizePayment(ctx context.Context, bookingID, customerID uuid.UUID) (*PaymentAuthorizationDTO, error) {
	if s.gateway == nil {
		return nil, domain.NewServiceUnavailableError("payment provider is not configured")
	}

	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.CustomerID() != customerID {
		return nil, domain.NewForbiddenError("booking does not belong to this customer")
	}
	if !bk.Status().AllowsPaymentAuthorization() {
		return nil, domain.NewInvalidStateError(string(bk.Status()), "payment_authorized")
	}
	if bk.PaymentStatus() == bookingDomain.PaymentPaid {
		return nil, domain.NewConflictError("booking is already paid", string(bk.Status()))
	}

	amountCents, err := s.fees.AmountCents(bk.Price())
	if err != nil {
		return nil, err
	}

	// Reuse an existing intent unless the provider reports it terminally
	// failed; duplicate authorizations would double-charge.
	if existing := bk.PaymentIntentID(); existing != nil {
		intent, err := s.gateway.RetrieveIntent(ctx, *existing)
		if err == nil && intent.Status.Reusable() {
			return s.recordIntent(ctx, bk, intent)
		}
		if err != nil {
			s.logger.Warn("stored payment intent could not be retrieved, creating a new one",
				zap.String("booking_id", bk.ID().String()),
				zap.Error(err),
			)
		}
	}

	destination, feeCents, err := s.splitFor(ctx, bk.ProID(), amountCents)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		AmountCents:         amountCents,
		Currency:            bk.Currency(),
		BookingID:           bk.ID(),
		CustomerID:          bk.CustomerID(),
		Destination:         destination,
		ApplicationFeeCents: feeCents,
		CaptureNow:          bk.Status() == bookingDomain.StatusAwaitingPayment,
	})
	if err != nil {
		return nil, err
	}

	return s.recordIntent(ctx, bk, intent)
}

// CapturePayment finalizes the charge against an awaiting_payment booking
// and completes it once the provider confirms capture.
func (s *PaymentService) CapturePayment(ctx context.Context, bookingID, customerID uuid.UUID) (*PaymentAuthorizationDTO, error) {
	if s.gateway == nil {
		return nil, domain.NewServiceUnavailableError("payment provider is not configured")
	}

	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.CustomerID() != customerID {
		return nil, domain.NewForbiddenError("booking does not belong to this customer")
	}
	if bk.Status() != bookingDomain.StatusAwaitingPayment {
		return nil, domain.NewInvalidStateError(string(bk.Status()), string(bookingDomain.StatusCompleted))
	}
	if bk.PaymentIntentID() == nil {
		return nil, domain.NewInvalidAmountError("no payment authorization exists for this booking")
	}

	intent, err := s.gateway.RetrieveIntent(ctx, *bk.PaymentIntentID())
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case payment.IntentSucceeded:
		// Already captured out-of-band; fall through to finalize.
	case payment.IntentRequiresCapture:
		intent, err = s.gateway.CaptureIntent(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewConflictError(
			"payment is not confirmed yet: "+string(intent.Status),
			string(bk.Status()),
		)
	}

	expected := bk.Status()
	bk.MarkPaid()
	if err := bk.Finalize(); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateGuarded(ctx, bk, expected); err != nil {
		return nil, err
	}

	s.notifyPaid(ctx, bk)

	dto := toAuthorizationDTO(bk, intent)
	return &dto, nil
}

// HandleIntentSucceeded processes the out-of-band capture confirmation from
// the provider webhook bridge. Safe under duplicate deliveries: a booking
// that is already completed and paid is left untouched.
func (s *PaymentService) HandleIntentSucceeded(ctx context.Context, bookingID uuid.UUID, intentID string) error {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if stored := bk.PaymentIntentID(); stored == nil || *stored != intentID {
		s.logger.Warn("intent succeeded event does not match stored intent, ignoring",
			zap.String("booking_id", bookingID.String()),
			zap.String("intent_id", intentID),
		)
		return nil
	}

	if bk.PaymentStatus() == bookingDomain.PaymentPaid && bk.Status() == bookingDomain.StatusCompleted {
		return nil
	}

	expected := bk.Status()
	bk.MarkPaid()
	if bk.Status() == bookingDomain.StatusAwaitingPayment {
		if err := bk.Finalize(); err != nil {
			return err
		}
	}
	if err := s.bookings.UpdateGuarded(ctx, bk, expected); err != nil {
		return err
	}

	s.notifyPaid(ctx, bk)
	return nil
}

// --- Connected accounts ---

// GetPaymentAccount returns the pro's connected account.
func (s *PaymentService) GetPaymentAccount(ctx context.Context, proID uuid.UUID) (*PaymentAccountDTO, error) {
	account, err := s.accounts.FindByProID(ctx, proID)
	if err != nil {
		return nil, err
	}
	return &PaymentAccountDTO{
		ProID:          account.ProID,
		AccountID:      account.AccountID,
		ChargesEnabled: account.ChargesEnabled,
	}, nil
}

// SetPaymentAccount links or updates the pro's connected payout account.
func (s *PaymentService) SetPaymentAccount(ctx context.Context, proID uuid.UUID, accountID string, chargesEnabled bool) (*PaymentAccountDTO, error) {
	if accountID == "" {
		return nil, domain.NewValidationError("account ID is required")
	}

	account := &payment.ConnectedAccount{
		ProID:          proID,
		AccountID:      accountID,
		ChargesEnabled: chargesEnabled,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}
	return &PaymentAccountDTO{
		ProID:          proID,
		AccountID:      accountID,
		ChargesEnabled: chargesEnabled,
	}, nil
}

// --- Helpers ---

// splitFor decides the destination split. A pro with no connected account,
// or one without charges enabled, gets no transfer metadata: the full
// amount is held by the platform. Any other lookup failure aborts the
// authorization: treating it as "no account" would create a no-split intent
// that the reuse rule then pins to the booking, permanently rerouting the
// pro's share to the platform.
func (s *PaymentService) splitFor(ctx context.Context, proID uuid.UUID, amountCents int64) (string, int64, error) {
	account, err := s.accounts.FindByProID(ctx, proID)
	if err != nil {
		if domain.CodeOf(err) == domain.CodeNotFound {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to look up connected account: %w", err)
	}
	if !account.ChargesEnabled {
		return "", 0, nil
	}
	return account.AccountID, s.fees.ApplicationFeeCents(amountCents), nil
}

// recordIntent persists the intent reference and derived payment status on
// the booking without changing its lifecycle status.
func (s *PaymentService) recordIntent(
	ctx context.Context,
	bk *bookingDomain.Booking,
	intent *payment.Intent,
) (*PaymentAuthorizationDTO, error) {
	expected := bk.Status()
	bk.RecordPaymentIntent(intent.ID, derivePaymentStatus(intent.Status))
	if bk.PaymentStatus() == bookingDomain.PaymentPaid && bk.Status() == bookingDomain.StatusAwaitingPayment {
		if err := bk.Finalize(); err != nil {
			return nil, err
		}
	}
	if err := s.bookings.UpdateGuarded(ctx, bk, expected); err != nil {
		return nil, err
	}

	dto := toAuthorizationDTO(bk, intent)
	return &dto, nil
}

func (s *PaymentService) notifyPaid(ctx context.Context, bk *bookingDomain.Booking) {
	s.notifier.Emit(ctx, bk.ProID(), events.BookingCompleted, events.BookingNotification{
		BookingID:   bk.ID(),
		RecipientID: bk.ProID(),
		CustomerID:  bk.CustomerID(),
		ProID:       bk.ProID(),
		Status:      string(bk.Status()),
		ServiceName: bk.ServiceName(),
		OccurredAt:  time.Now().UTC(),
	})
}

// derivePaymentStatus maps provider intent state to the booking's payment
// status: succeeded -> PAID, requires_action -> REQUIRES_ACTION, else UNPAID.
func derivePaymentStatus(status payment.IntentStatus) bookingDomain.PaymentStatus {
	switch status {
	case payment.IntentSucceeded:
		return bookingDomain.PaymentPaid
	case payment.IntentRequiresAction:
		return bookingDomain.PaymentRequiresAction
	default:
		return bookingDomain.PaymentUnpaid
	}
}

func toAuthorizationDTO(bk *bookingDomain.Booking, intent *payment.Intent) PaymentAuthorizationDTO {
	return PaymentAuthorizationDTO{
		PaymentIntentID:     intent.ID,
		ClientSecret:        intent.ClientSecret,
		AmountCents:         intent.AmountCents,
		ApplicationFeeCents: intent.ApplicationFeeCents,
		DestinationAccount:  intent.Destination,
		Currency:            intent.Currency,
		PaymentStatus:       string(bk.PaymentStatus()),
		BookingStatus:       string(bk.Status()),
	}
}
