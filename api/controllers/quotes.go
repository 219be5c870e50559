package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/api/validators"
	"github.com/craftlane/craftlane-backend/internal/quotes"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

type quoteScopePayload struct {
	ProductID *string `json:"product_id"`
	VariantID *string `json:"variant_id"`
	ServiceID *string `json:"service_id"`
	PackageID *string `json:"package_id"`
}

type requestQuotePayload struct {
	ConversationID string            `json:"conversation_id" validate:"required,uuid"`
	Scope          quoteScopePayload `json:"scope"`
	Quantity       int               `json:"quantity" validate:"required,min=1"`
	Notes          *string           `json:"notes"`
}

type sendQuotePayload struct {
	ConversationID string            `json:"conversation_id" validate:"required,uuid"`
	Scope          quoteScopePayload `json:"scope"`
	Price          decimal.Decimal   `json:"price"`
	Quantity       int               `json:"quantity" validate:"required,min=1"`
	ExpiresAt      *time.Time        `json:"expires_at"`
	Notes          *string           `json:"notes"`
}

func (p quoteScopePayload) toScope() (quotes.ItemScope, error) {
	productID, err := optionalUUID(p.ProductID)
	if err != nil {
		return quotes.ItemScope{}, err
	}
	variantID, err := optionalUUID(p.VariantID)
	if err != nil {
		return quotes.ItemScope{}, err
	}
	serviceID, err := optionalUUID(p.ServiceID)
	if err != nil {
		return quotes.ItemScope{}, err
	}
	packageID, err := optionalUUID(p.PackageID)
	if err != nil {
		return quotes.ItemScope{}, err
	}
	return quotes.ItemScope{
		ProductID: productID,
		VariantID: variantID,
		ServiceID: serviceID,
		PackageID: packageID,
	}, nil
}

// QuotesRequest lets a buyer ask the seller for pricing on an item scope.
func QuotesRequest(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload requestQuotePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := uuid.Parse(payload.ConversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid conversation id"))
			return
		}
		scope, err := payload.Scope.toScope()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		quote, err := svc.Request(ctx, quotes.RequestInput{
			ConversationID: conversationID,
			Scope:          scope,
			Quantity:       payload.Quantity,
			Notes:          payload.Notes,
			Actor:          quotes.Actor{UserID: p.UserID, Role: p.Role},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

// QuotesSend lets a seller issue a priced offer into a conversation.
func QuotesSend(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload sendQuotePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		conversationID, err := uuid.Parse(payload.ConversationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid conversation id"))
			return
		}
		scope, err := payload.Scope.toScope()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		quote, err := svc.Send(ctx, quotes.SendInput{
			ConversationID: conversationID,
			Scope:          scope,
			Price:          payload.Price,
			Quantity:       payload.Quantity,
			ExpiresAt:      payload.ExpiresAt,
			Notes:          payload.Notes,
			Actor:          quotes.Actor{UserID: p.UserID, Role: p.Role},
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

// QuotesGet returns one quote visible to the actor.
func QuotesGet(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		quote, err := svc.Get(ctx, id, p.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// QuotesAccept locks a sent quote for checkout.
func QuotesAccept(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteDecision(svc, logg, true)
}

// QuotesReject declines a sent quote.
func QuotesReject(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return quoteDecision(svc, logg, false)
}

func quoteDecision(svc quotes.Service, logg *logger.Logger, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "quoteId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input := quotes.DecisionInput{
			QuoteID: id,
			Actor:   quotes.Actor{UserID: p.UserID, Role: p.Role},
		}
		if accept {
			err = svc.Accept(ctx, input)
		} else {
			err = svc.Reject(ctx, input)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// QuotesListByConversation returns the quote history of a thread.
func QuotesListByConversation(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
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
