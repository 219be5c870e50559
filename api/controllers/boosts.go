package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/boosts"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type purchaseBoostPayload struct {
	ProductID    string          `json:"product_id" validate:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
	DurationDays int             `json:"duration_days" validate:"required,min=1"`
}

// BoostsPurchase starts a listing boost purchase for a seller's product.
func BoostsPurchase(svc boosts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "boosts service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload purchaseBoostPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		boost, err := svc.Purchase(ctx, boosts.Actor{UserID: p.UserID, Role: p.Role}, boosts.PurchaseInput{
			ProductID:    productID,
			Amount:       payload.Amount,
			DurationDays: payload.DurationDays,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, boost)
	}
}

// BoostsListMine returns the seller's boost purchases.
func BoostsListMine(svc boosts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "boosts service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.ListMine(ctx, boosts.Actor{UserID: p.UserID, Role: p.Role}, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// BoostsGet returns one boost purchase.
func BoostsGet(svc boosts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "boosts service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "boostId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		boost, err := svc.Get(ctx, boosts.Actor{UserID: p.UserID, Role: p.Role}, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, boost)
	}
}

// BoostsCancel cancels a boost that has not activated yet.
func BoostsCancel(svc boosts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "boosts service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "boostId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Cancel(ctx, boosts.Actor{UserID: p.UserID, Role: p.Role}, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
