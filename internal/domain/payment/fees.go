package payment

import (
	"math"

	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// DefaultPlatformFeePercent is the share of each charge retained by the
// platform when funds are routed to a pro's connected account.
const DefaultPlatformFeePercent = 15

// FeePolicy computes charge amounts and the platform's cut. Amounts are
// always recomputed server-side from the persisted price; client-supplied
// totals are never trusted.
type FeePolicy struct {
	percent int
}

// NewFeePolicy creates a FeePolicy with the given platform fee percentage.
// Out-of-range values fall back to the default.
func NewFeePolicy(percent int) FeePolicy {
	if percent < 0 || percent > 100 {
		percent = DefaultPlatformFeePercent
	}
	return FeePolicy{percent: percent}
}

// Percent returns the configured platform fee percentage.
func (p FeePolicy) Percent() int { return p.percent }

// AmountCents converts a price in major units to minor units:
// round(price * 100). The result must be a positive integer.
func (p FeePolicy) AmountCents(price float64) (int64, error) {
	amount := int64(math.Round(price * 100))
	if amount <= 0 {
		return 0, domain.NewInvalidAmountError("charge amount must be positive")
	}
	return amount, nil
}

// ApplicationFeeCents returns round(amount * fee rate) in minor units.
func (p FeePolicy) ApplicationFeeCents(amountCents int64) int64 {
	return int64(math.Round(float64(amountCents) * float64(p.percent) / 100))
}
