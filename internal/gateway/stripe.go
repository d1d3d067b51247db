package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"github.com/ProLink-Marketplace/service-booking/internal/domain/payment"
	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

const callTimeout = 15 * time.Second

// StripeGateway implements payment.Gateway against the Stripe API using
// destination charges for the connected-account split.
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway creates a StripeGateway. Returns nil when no secret key
// is configured; callers treat a nil gateway as provider-unavailable.
func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	if secretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, logger: logger}
}

// CreateIntent creates a payment intent. Pre-capture authorizations use
// manual capture so funds are only taken once the job reaches
// awaiting_payment.
func (g *StripeGateway) CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountCents),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("booking_id", p.BookingID.String())
	params.AddMetadata("customer_id", p.CustomerID.String())

	if !p.CaptureNow {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	if p.Destination != "" {
		params.ApplicationFeeAmount = stripe.Int64(p.ApplicationFeeCents)
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(p.Destination),
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, g.wrapErr("create payment intent", err)
	}
	return toIntent(pi), nil
}

// RetrieveIntent fetches an existing intent by id.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, g.wrapErr("retrieve payment intent", err)
	}
	return toIntent(pi), nil
}

// CaptureIntent captures a previously authorized intent.
func (g *StripeGateway) CaptureIntent(ctx context.Context, id string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Capture(id, params)
	if err != nil {
		return nil, g.wrapErr("capture payment intent", err)
	}
	return toIntent(pi), nil
}

// wrapErr surfaces the provider's human-readable message verbatim so
// operators see the original rejection, not a generic 500.
func (g *StripeGateway) wrapErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		g.logger.Warn("stripe rejected request",
			zap.String("op", op),
			zap.String("stripe_code", string(stripeErr.Code)),
		)
		return domain.NewUpstreamError(stripeErr.Msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewServiceUnavailableError("payment provider timed out")
	}
	return domain.NewUpstreamError(err.Error(), err)
}

func toIntent(pi *stripe.PaymentIntent) *payment.Intent {
	intent := &payment.Intent{
		ID:                  pi.ID,
		ClientSecret:        pi.ClientSecret,
		AmountCents:         pi.Amount,
		Currency:            string(pi.Currency),
		Status:              payment.IntentStatus(pi.Status),
		ApplicationFeeCents: pi.ApplicationFeeAmount,
	}
	if pi.TransferData != nil && pi.TransferData.Destination != nil {
		intent.Destination = pi.TransferData.Destination.ID
	}
	return intent
}
