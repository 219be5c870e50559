package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/designs"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

type submitDesignPayload struct {
	ConversationID string         `json:"conversation_id" validate:"required,uuid"`
	Context        string         `json:"context" validate:"required"`
	ProductID      *string        `json:"product_id"`
	VariantID      *string        `json:"variant_id"`
	ServiceID      *string        `json:"service_id"`
	PackageID      *string        `json:"package_id"`
	QuoteID        *string        `json:"quote_id"`
	Files          types.FileRefs `json:"files" validate:"required,min=1"`
}

type reviewDesignPayload struct {
	Notes *string `json:"notes"`
}

type resubmitDesignPayload struct {
	Files types.FileRefs `json:"files" validate:"required,min=1"`
}

type copyDesignPayload struct {
	TargetProductID *string `json:"target_product_id"`
	TargetVariantID *string `json:"target_variant_id"`
	TargetServiceID *string `json:"target_service_id"`
	TargetPackageID *string `json:"target_package_id"`
}

// DesignsSubmit records a buyer's design files for seller review.
func DesignsSubmit(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "designs service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload submitDesignPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := uuid.Parse(payload.ConversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid conversation id"))
			return
		}
		designContext, err := enums.ParseDesignContext(payload.Context)
		if err != nil {
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
		approval, err := svc.Submit(ctx, designs.SubmitInput{
			ConversationID: conversationID,
			Context:        designContext,
			ProductID:      productID,
			VariantID:      variantID,
			ServiceID:      serviceID,
			PackageID:      packageID,
			QuoteID:        quoteID,
			Files:          payload.Files,
			Actor:          designs.Actor{UserID: p.UserID, Role: p.Role},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, approval)
	}
}

// DesignsGet returns one approval visible to the actor.
func DesignsGet(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "designs service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "designId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		approval, err := svc.Get(ctx, id, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, approval)
	}
}

// DesignsApprove marks a submitted design approved.
func DesignsApprove(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return designReview(svc, logg, "approve")
}

// DesignsReject terminally rejects a submitted design.
func DesignsReject(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return designReview(svc, logg, "reject")
}

// DesignsRequestChanges sends a submitted design back to the buyer.
func DesignsRequestChanges(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return designReview(svc, logg, "request_changes")
}

func designReview(svc designs.Service, logg *logger.Logger, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "designs service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "designId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload reviewDesignPayload
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		input := designs.ReviewInput{
			DesignApprovalID: id,
			Notes:            payload.Notes,
			Actor:            designs.Actor{UserID: p.UserID, Role: p.Role},
		}
		switch action {
		case "approve":
			err = svc.Approve(ctx, input)
		case "reject":
			err = svc.Reject(ctx, input)
		default:
			err = svc.RequestChanges(ctx, input)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// DesignsResubmit replaces the files of a changes-requested design.
func DesignsResubmit(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "designs service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "designId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload resubmitDesignPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Resubmit(ctx, designs.ResubmitInput{
			DesignApprovalID: id,
			Files:            payload.Files,
			Actor:            designs.Actor{UserID: p.UserID, Role: p.Role},
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// DesignsCopy duplicates an approved design onto a sibling target within the
// same seller's catalog.
func DesignsCopy(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "designs service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "designId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload copyDesignPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		targetProductID, err := optionalUUID(payload.TargetProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		targetVariantID, err := optionalUUID(payload.TargetVariantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		targetServiceID, err := optionalUUID(payload.TargetServiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		targetPackageID, err := optionalUUID(payload.TargetPackageID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		approval, err := svc.CopyToTarget(ctx, designs.CopyInput{
			SourceApprovalID: id,
			TargetProductID:  targetProductID,
			TargetVariantID:  targetVariantID,
			TargetServiceID:  targetServiceID,
			TargetPackageID:  targetPackageID,
			Actor:            designs.Actor{UserID: p.UserID, Role: p.Role},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, approval)
	}
}

// DesignsListByConversation returns the approvals of a thread with the
// buyer-facing status view.
func DesignsListByConversation(svc designs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "designs service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.ListByConversation(ctx, conversationID, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
