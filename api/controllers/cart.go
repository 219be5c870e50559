package controllers

import (
	"net/http"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/cart"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type addCartItemPayload struct {
	ProductID *string `json:"product_id"`
	VariantID *string `json:"variant_id"`
	ServiceID *string `json:"service_id"`
	PackageID *string `json:"package_id"`
	QuoteID   *string `json:"quote_id"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
}

type updateCartItemPayload struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// CartList returns the buyer's staged items.
func CartList(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.List(ctx, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// CartAddItem stages an item for checkout.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload addCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		productID, err := optionalUUID(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		variantID, err := optionalUUID(payload.VariantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		serviceID, err := optionalUUID(payload.ServiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		packageID, err := optionalUUID(payload.PackageID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		quoteID, err := optionalUUID(payload.QuoteID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.Add(ctx, cart.AddInput{
			BuyerID:   p.UserID,
			ProductID: productID,
			VariantID: variantID,
			ServiceID: serviceID,
			PackageID: packageID,
			QuoteID:   quoteID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// CartUpdateItem changes a staged item's quantity.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload updateCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.UpdateQuantity(ctx, p.UserID, itemID, payload.Quantity); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// CartRemoveItem unstages an item.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Remove(ctx, p.UserID, itemID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
