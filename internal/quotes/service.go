package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultExpiry is applied when the seller sends a quote without an explicit
// expiry timestamp.
const DefaultExpiry = 7 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ItemScope identifies the item configuration a quote negotiates. A nil
// variant/package with a product/service set marks a custom scope.
type ItemScope struct {
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	ServiceID *uuid.UUID
	PackageID *uuid.UUID
}

func (s ItemScope) validate() error {
	if (s.ProductID == nil) == (s.ServiceID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote scope requires exactly one of product or service")
	}
	if s.ProductID == nil && s.VariantID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant requires a product")
	}
	if s.ServiceID == nil && s.PackageID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "package requires a service")
	}
	return nil
}

// RequestInput opens a buyer-initiated negotiation without a price.
type RequestInput struct {
	ConversationID uuid.UUID
	Scope          ItemScope
	Quantity       int
	Notes          *string
	Actor          Actor
}

// SendInput carries the seller's priced offer.
type SendInput struct {
	ConversationID uuid.UUID
	Scope          ItemScope
	Price          decimal.Decimal
	Quantity       int
	ExpiresAt      *time.Time
	Notes          *string
	Actor          Actor
}

// DecisionInput carries the buyer's accept/reject call.
type DecisionInput struct {
	QuoteID uuid.UUID
	Actor   Actor
}

// Service is the quote negotiation state machine.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Quote, error)
	Send(ctx context.Context, input SendInput) (*models.Quote, error)
	Accept(ctx context.Context, input DecisionInput) error
	Reject(ctx context.Context, input DecisionInput) error
	Get(ctx context.Context, id, actorID uuid.UUID) (*models.Quote, error)
	ListByConversation(ctx context.Context, conversationID, actorID uuid.UUID) ([]models.Quote, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
}

// NewService builds the quote service.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quotes repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		tx:      tx,
		outbox:  outboxSvc,
		now:     time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Quote, error) {
	if input.ConversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := input.Scope.validate(); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		conversation, err := repo.FindConversation(ctx, input.ConversationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
		}
		if conversation.BuyerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the conversation buyer may request a quote")
		}

		// One negotiation per scope: a repeated request refreshes the
		// outstanding requested quote instead of stacking duplicates.
		existing, err := repo.FindOutstandingRequested(ctx, conversation.ID,
			input.Scope.ProductID, input.Scope.VariantID, input.Scope.ServiceID, input.Scope.PackageID)
		if err == nil {
			updates := map[string]any{"quantity": input.Quantity}
			if input.Notes != nil {
				updates["notes"] = *input.Notes
			}
			affected, err := repo.UpdateGuarded(ctx, existing.ID,
				[]enums.QuoteStatus{enums.QuoteStatusRequested}, updates)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh requested quote")
			}
			if affected == 0 {
				return pkgerrors.InvalidTransition("quote", existing.Status.String(), enums.QuoteStatusRequested.String())
			}
			existing.Quantity = input.Quantity
			if input.Notes != nil {
				existing.Notes = input.Notes
			}
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup outstanding quote")
		}

		quote := &models.Quote{
			ConversationID: conversation.ID,
			BuyerID:        conversation.BuyerID,
			SellerID:       conversation.SellerID,
			ProductID:      input.Scope.ProductID,
			VariantID:      input.Scope.VariantID,
			ServiceID:      input.Scope.ServiceID,
			PackageID:      input.Scope.PackageID,
			Status:         enums.QuoteStatusRequested,
			Quantity:       input.Quantity,
			Notes:          input.Notes,
		}
		result, err = repo.Create(ctx, quote)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
		}
		return s.emitLifecycle(ctx, tx, enums.EventQuoteRequested, result, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Send(ctx context.Context, input SendInput) (*models.Quote, error) {
	if input.ConversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := input.Scope.validate(); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quoted price cannot be negative")
	}

	expiresAt := input.ExpiresAt
	if expiresAt == nil {
		t := s.now().Add(DefaultExpiry)
		expiresAt = &t
	}

	var result *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		conversation, err := repo.FindConversation(ctx, input.ConversationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
		}
		if conversation.SellerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the conversation seller may send a quote")
		}

		designID, err := s.enforceDesignFirst(ctx, tx, conversation.ID, input.Scope)
		if err != nil {
			return err
		}

		// Supersede the outstanding requested quote for the same scope
		// instead of creating a second negotiation row.
		existing, err := repo.FindOutstandingRequested(ctx, conversation.ID,
			input.Scope.ProductID, input.Scope.VariantID, input.Scope.ServiceID, input.Scope.PackageID)
		if err == nil {
			updates := map[string]any{
				"status":       enums.QuoteStatusSent,
				"quoted_price": input.Price,
				"quantity":     input.Quantity,
				"expires_at":   *expiresAt,
			}
			if designID != nil {
				updates["design_approval_id"] = *designID
			}
			if input.Notes != nil {
				updates["notes"] = *input.Notes
			}
			affected, err := repo.UpdateGuarded(ctx, existing.ID,
				[]enums.QuoteStatus{enums.QuoteStatusRequested}, updates)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send quote")
			}
			if affected == 0 {
				return pkgerrors.InvalidTransition("quote", existing.Status.String(), enums.QuoteStatusRequested.String())
			}
			existing.Status = enums.QuoteStatusSent
			existing.QuotedPrice = &input.Price
			existing.Quantity = input.Quantity
			existing.ExpiresAt = expiresAt
			existing.DesignApprovalID = designID
			if input.Notes != nil {
				existing.Notes = input.Notes
			}
			result = existing
			return s.emitLifecycle(ctx, tx, enums.EventQuoteSent, result, input.Actor)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup outstanding quote")
		}

		price := input.Price
		quote := &models.Quote{
			ConversationID:   conversation.ID,
			BuyerID:          conversation.BuyerID,
			SellerID:         conversation.SellerID,
			ProductID:        input.Scope.ProductID,
			VariantID:        input.Scope.VariantID,
			ServiceID:        input.Scope.ServiceID,
			PackageID:        input.Scope.PackageID,
			Status:           enums.QuoteStatusSent,
			QuotedPrice:      &price,
			Quantity:         input.Quantity,
			ExpiresAt:        expiresAt,
			DesignApprovalID: designID,
			Notes:            input.Notes,
		}
		result, err = repo.Create(ctx, quote)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
		}
		return s.emitLifecycle(ctx, tx, enums.EventQuoteSent, result, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// enforceDesignFirst blocks sending a quote for an item gated on both a
// quote and a design approval until an approved design exists for the same
// scope. The matching approval is auto-linked to the quote.
func (s *service) enforceDesignFirst(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, scope ItemScope) (*uuid.UUID, error) {
	gated, err := s.itemRequiresQuoteAndDesign(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	if !gated {
		return nil, nil
	}

	repo := s.repo.WithTx(tx)
	approval, err := repo.FindApprovedDesign(ctx, conversationID, scope.VariantID, scope.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeRequirementNotMet, "an approved design is required before a quote can be sent")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup approved design")
	}
	id := approval.ID
	return &id, nil
}

func (s *service) itemRequiresQuoteAndDesign(ctx context.Context, tx *gorm.DB, scope ItemScope) (bool, error) {
	catalogRepo := s.catalog.WithTx(tx)
	if scope.ProductID != nil {
		product, err := catalogRepo.FindProduct(ctx, *scope.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		return product.RequiresQuote && product.RequiresDesignApproval, nil
	}
	svc, err := catalogRepo.FindService(ctx, *scope.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc.RequiresQuote && svc.RequiresDesignApproval, nil
}

func (s *service) Accept(ctx context.Context, input DecisionInput) error {
	return s.decide(ctx, input, enums.QuoteStatusAccepted, enums.EventQuoteAccepted)
}

func (s *service) Reject(ctx context.Context, input DecisionInput) error {
	return s.decide(ctx, input, enums.QuoteStatusRejected, enums.EventQuoteRejected)
}

func (s *service) decide(ctx context.Context, input DecisionInput, target enums.QuoteStatus, eventType enums.OutboxEventType) error {
	if input.QuoteID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		quote, err := repo.FindByID(ctx, input.QuoteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		if quote.BuyerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "quote does not belong to buyer")
		}
		if quote.Status != enums.QuoteStatusSent {
			return pkgerrors.InvalidTransition("quote", quote.Status.String(), enums.QuoteStatusSent.String())
		}
		if quote.IsExpired(s.now()) {
			// Persist the read-time expiry so later reads agree.
			if _, err := repo.UpdateGuarded(ctx, quote.ID,
				[]enums.QuoteStatus{enums.QuoteStatusSent},
				map[string]any{"status": enums.QuoteStatusExpired}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire quote")
			}
			return pkgerrors.New(pkgerrors.CodeExpired, "quote has expired")
		}

		affected, err := repo.UpdateGuarded(ctx, quote.ID,
			[]enums.QuoteStatus{enums.QuoteStatusSent},
			map[string]any{"status": target})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quote status")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("quote", quote.Status.String(), enums.QuoteStatusSent.String())
		}

		quote.Status = target
		return s.emitLifecycle(ctx, tx, eventType, quote, input.Actor)
	})
}

func (s *service) Get(ctx context.Context, id, actorID uuid.UUID) (*models.Quote, error) {
	quote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if quote.BuyerID != actorID && quote.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote does not involve user")
	}
	applyReadTimeExpiry(quote, s.now())
	return quote, nil
}

func (s *service) ListByConversation(ctx context.Context, conversationID, actorID uuid.UUID) ([]models.Quote, error) {
	conversation, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !conversation.Involves(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "conversation does not involve user")
	}

	quotes, err := s.repo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	now := s.now()
	for i := range quotes {
		applyReadTimeExpiry(&quotes[i], now)
	}
	return quotes, nil
}

// applyReadTimeExpiry projects the computed expiry onto the returned value
// without writing. The store row flips lazily on the next guarded action.
func applyReadTimeExpiry(quote *models.Quote, now time.Time) {
	if quote.Status == enums.QuoteStatusSent && quote.IsExpired(now) {
		quote.Status = enums.QuoteStatusExpired
	}
}

func (s *service) emitLifecycle(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, quote *models.Quote, actor Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateQuote,
		AggregateID:   quote.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
		Data: payloads.QuoteLifecycleEvent{
			QuoteID:  quote.ID,
			BuyerID:  quote.BuyerID,
			SellerID: quote.SellerID,
			Status:   quote.Status,
		},
	})
}
