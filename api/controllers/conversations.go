package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/conversations"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type startConversationPayload struct {
	SellerID  string  `json:"seller_id" validate:"required,uuid"`
	ProductID *string `json:"product_id"`
	ServiceID *string `json:"service_id"`
}

// ConversationsStart opens a buyer-seller thread around a product or service.
func ConversationsStart(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload startConversationPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sellerID, err := uuid.Parse(payload.SellerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
			return
		}
		productID, err := optionalUUID(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		serviceID, err := optionalUUID(payload.ServiceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversation, err := svc.Start(ctx, conversations.StartInput{
			BuyerID:   p.UserID,
			SellerID:  sellerID,
			ProductID: productID,
			ServiceID: serviceID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, conversation)
	}
}

// ConversationsList returns every thread the user participates in.
func ConversationsList(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		items, err := svc.ListForUser(ctx, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ConversationsGet returns one thread if the user is a participant.
func ConversationsGet(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversation, err := svc.Get(ctx, id, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, conversation)
	}
}
