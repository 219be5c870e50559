package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/returns"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

type submitReturnPayload struct {
	OrderID         *string         `json:"order_id"`
	BookingID       *string         `json:"booking_id"`
	Reason          string          `json:"reason" validate:"required"`
	Evidence        types.FileRefs  `json:"evidence"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
}

type sellerRespondPayload struct {
	Approve        bool             `json:"approve"`
	ProposedAmount *decimal.Decimal `json:"proposed_amount"`
	Notes          string           `json:"notes"`
}

type adminResolvePayload struct {
	Approve        bool             `json:"approve"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount"`
	Notes          string           `json:"notes"`
}

// ReturnsSubmit opens a return claim against a delivered order or completed
// booking.
func ReturnsSubmit(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload submitReturnPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := optionalUUID(payload.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookingID, err := optionalUUID(payload.BookingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		request, err := svc.Submit(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, returns.SubmitInput{
			OrderID:         orderID,
			BookingID:       bookingID,
			Reason:          validators.SanitizeString(payload.Reason, 2000),
			Evidence:        payload.Evidence,
			RequestedAmount: payload.RequestedAmount,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ReturnsList returns requests the actor is party to.
func ReturnsList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
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
		items, err := svc.ListForUser(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ReturnsGet returns one request visible to the actor.
func ReturnsGet(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		request, err := svc.Get(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ReturnsSellerRespond records the seller's stance on an open request.
func ReturnsSellerRespond(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload sellerRespondPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.SellerRespond(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, id, returns.SellerResponse{
			Approve:        payload.Approve,
			ProposedAmount: payload.ProposedAmount,
			Notes:          validators.SanitizeString(payload.Notes, 2000),
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// ReturnsCancel withdraws the buyer's own open request.
func ReturnsCancel(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Cancel(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// AdminReturnsList filters requests by status for the resolution queue.
func AdminReturnsList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
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
		status, err := enums.ParseReturnStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.ListByStatus(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, status, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// AdminReturnsResolve records the admin's final ruling on a request.
func AdminReturnsResolve(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload adminResolvePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.AdminResolve(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, id, returns.AdminResolution{
			Approve:        payload.Approve,
			ApprovedAmount: payload.ApprovedAmount,
			Notes:          validators.SanitizeString(payload.Notes, 2000),
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// AdminReturnsRefund executes the refund of an approved resolution.
func AdminReturnsRefund(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.ProcessRefund(ctx, returns.Actor{UserID: p.UserID, Role: p.Role}, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "refunded"})
	}
}
