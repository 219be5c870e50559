package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/checkout"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

type checkoutPayload struct {
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Destination   *types.Address  `json:"destination"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
}

// CheckoutCreate converts the buyer's cart into orders, bookings and pending
// escrow transactions in one transaction.
func CheckoutCreate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload checkoutPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		method := enums.PaymentMethod(payload.PaymentMethod)
		if !method.IsValid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method"))
			return
		}
		result, err := svc.Checkout(ctx, checkout.Input{
			BuyerID:       p.UserID,
			PaymentMethod: method,
			Destination:   payload.Destination,
			ShippingCost:  payload.ShippingCost,
			Actor:         checkout.Actor{UserID: p.UserID, Role: p.Role},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutGetSession returns one checkout session visible to the actor.
func CheckoutGetSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session, err := svc.GetSession(ctx, id, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
