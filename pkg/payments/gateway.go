package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// Redirect is a hosted payment page for one checkout session. Reference is
// the value the gateway echoes back on its webhook.
type Redirect struct {
	URL       string
	Reference string
	Amount    decimal.Decimal
}

// Charge describes the money to collect for a checkout session.
type Charge struct {
	Reference   string
	Description string
	Amount      decimal.Decimal
}

// Refund describes money to push back to the buyer for a resolved return.
type Refund struct {
	GatewayPaymentID string
	Amount           decimal.Decimal
	Reason           string
}

// Gateway is the payment provider boundary. Implementations must be safe for
// concurrent use.
type Gateway interface {
	CreateRedirect(ctx context.Context, charge Charge) (*Redirect, error)
	RefundPayment(ctx context.Context, refund Refund) error
}

// AmountToCents converts a two-decimal money amount to gateway cents.
func AmountToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
