package checkout

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
)

// SplitShippingByWeight distributes a total shipping cost across line items
// proportionally to their weight. Every share but the last is rounded to two
// decimals; the last share absorbs the rounding remainder so the shares
// always sum to the exact total. A single item always carries the full cost.
// When every weight is zero the cost is split evenly instead.
func SplitShippingByWeight(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping split requires at least one item")
	}
	if total.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}

	shares := make([]decimal.Decimal, len(weights))
	if len(weights) == 1 {
		shares[0] = total
		return shares, nil
	}

	totalWeight := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item weight cannot be negative")
		}
		totalWeight = totalWeight.Add(w)
	}

	allocated := decimal.Zero
	for i, w := range weights {
		if i == len(weights)-1 {
			shares[i] = total.Sub(allocated)
			break
		}
		var share decimal.Decimal
		if totalWeight.IsZero() {
			share = total.Div(decimal.NewFromInt(int64(len(weights)))).Round(2)
		} else {
			share = total.Mul(w).Div(totalWeight).Round(2)
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}
	return shares, nil
}
