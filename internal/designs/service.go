package designs

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/craftlane/craftlane-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

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

// SubmitInput carries a buyer's design submission.
type SubmitInput struct {
	ConversationID uuid.UUID
	Context        enums.DesignContext
	ProductID      *uuid.UUID
	VariantID      *uuid.UUID
	ServiceID      *uuid.UUID
	PackageID      *uuid.UUID
	QuoteID        *uuid.UUID
	Files          types.FileRefs
	Actor          Actor
}

// ReviewInput carries a seller decision on a submitted design.
type ReviewInput struct {
	DesignApprovalID uuid.UUID
	Notes            *string
	Actor            Actor
}

// ResubmitInput replaces the file list after changes were requested.
type ResubmitInput struct {
	DesignApprovalID uuid.UUID
	Files            types.FileRefs
	Actor            Actor
}

// CopyInput duplicates an approved design onto a sibling variant or package.
type CopyInput struct {
	SourceApprovalID uuid.UUID
	TargetProductID  *uuid.UUID
	TargetVariantID  *uuid.UUID
	TargetServiceID  *uuid.UUID
	TargetPackageID  *uuid.UUID
	Actor            Actor
}

// Service is the design approval state machine.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.DesignApproval, error)
	Approve(ctx context.Context, input ReviewInput) error
	Reject(ctx context.Context, input ReviewInput) error
	RequestChanges(ctx context.Context, input ReviewInput) error
	Resubmit(ctx context.Context, input ResubmitInput) error
	CopyToTarget(ctx context.Context, input CopyInput) (*models.DesignApproval, error)
	Get(ctx context.Context, id, actorID uuid.UUID) (*models.DesignApproval, error)
	ListByConversation(ctx context.Context, conversationID, actorID uuid.UUID) ([]BuyerView, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	outbox  outboxPublisher
}

// NewService builds the design approval service.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("designs repository required")
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
	return &service{repo: repo, catalog: catalogRepo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.DesignApproval, error) {
	if input.ConversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one design file required")
	}
	if !input.Context.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid design context")
	}

	switch input.Context {
	case enums.DesignContextQuote:
		if input.VariantID != nil || input.PackageID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote-context designs must not reference a variant or package")
		}
	case enums.DesignContextProduct:
		hasVariant := input.ProductID != nil && input.VariantID != nil
		hasPackage := input.ServiceID != nil && input.PackageID != nil
		if hasVariant == hasPackage {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product-context designs require exactly one variant or package")
		}
	}

	var created *models.DesignApproval
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
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the conversation buyer may submit designs")
		}

		if input.QuoteID != nil {
			quote, err := repo.FindQuote(ctx, *input.QuoteID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
			}
			if quote.ConversationID != conversation.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "quote belongs to a different conversation")
			}
			if input.Context != enums.DesignContextQuote {
				return pkgerrors.New(pkgerrors.CodeValidation, "quote-linked designs must use quote context")
			}
		}

		approval := &models.DesignApproval{
			ConversationID: conversation.ID,
			BuyerID:        conversation.BuyerID,
			SellerID:       conversation.SellerID,
			Context:        input.Context,
			ProductID:      input.ProductID,
			VariantID:      input.VariantID,
			ServiceID:      input.ServiceID,
			PackageID:      input.PackageID,
			QuoteID:        input.QuoteID,
			Status:         enums.DesignApprovalStatusPending,
			Files:          input.Files,
		}
		created, err = repo.Create(ctx, approval)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create design approval")
		}

		return s.emitLifecycle(ctx, tx, enums.EventDesignSubmitted, created, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Approve(ctx context.Context, input ReviewInput) error {
	return s.review(ctx, input, enums.DesignApprovalStatusApproved, enums.EventDesignApproved)
}

func (s *service) Reject(ctx context.Context, input ReviewInput) error {
	return s.review(ctx, input, enums.DesignApprovalStatusRejected, enums.EventDesignRejected)
}

func (s *service) RequestChanges(ctx context.Context, input ReviewInput) error {
	return s.review(ctx, input, enums.DesignApprovalStatusChangesRequested, enums.EventDesignChangesRequested)
}

var reviewableStatuses = []enums.DesignApprovalStatus{
	enums.DesignApprovalStatusPending,
	enums.DesignApprovalStatusUnderReview,
	enums.DesignApprovalStatusResubmitted,
}

func (s *service) review(ctx context.Context, input ReviewInput, target enums.DesignApprovalStatus, eventType enums.OutboxEventType) error {
	if input.DesignApprovalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "design approval id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		approval, err := repo.FindByID(ctx, input.DesignApprovalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
		}
		if approval.SellerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "design does not belong to seller")
		}
		if !approval.Status.IsReviewable() {
			return pkgerrors.InvalidTransition("design_approval", approval.Status.String(),
				statusStrings(reviewableStatuses)...)
		}

		updates := map[string]any{"status": target}
		if input.Notes != nil {
			updates["seller_notes"] = *input.Notes
		}
		affected, err := repo.UpdateStatus(ctx, approval.ID, reviewableStatuses, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update design status")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("design_approval", approval.Status.String(),
				statusStrings(reviewableStatuses)...)
		}

		approval.Status = target
		if input.Notes != nil {
			approval.SellerNotes = input.Notes
		}
		return s.emitLifecycle(ctx, tx, eventType, approval, input.Actor)
	})
}

func (s *service) Resubmit(ctx context.Context, input ResubmitInput) error {
	if input.DesignApprovalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "design approval id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Files) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one design file required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		approval, err := repo.FindByID(ctx, input.DesignApprovalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
		}
		if approval.BuyerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "design does not belong to buyer")
		}
		if approval.Status != enums.DesignApprovalStatusChangesRequested {
			return pkgerrors.InvalidTransition("design_approval", approval.Status.String(),
				enums.DesignApprovalStatusChangesRequested.String())
		}

		affected, err := repo.UpdateStatus(ctx, approval.ID,
			[]enums.DesignApprovalStatus{enums.DesignApprovalStatusChangesRequested},
			map[string]any{
				"status": enums.DesignApprovalStatusResubmitted,
				"files":  input.Files,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update design status")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("design_approval", approval.Status.String(),
				enums.DesignApprovalStatusChangesRequested.String())
		}

		approval.Status = enums.DesignApprovalStatusResubmitted
		approval.Files = input.Files
		return s.emitLifecycle(ctx, tx, enums.EventDesignResubmitted, approval, input.Actor)
	})
}

func (s *service) CopyToTarget(ctx context.Context, input CopyInput) (*models.DesignApproval, error) {
	if input.SourceApprovalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source approval id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	hasVariant := input.TargetProductID != nil && input.TargetVariantID != nil
	hasPackage := input.TargetServiceID != nil && input.TargetPackageID != nil
	if hasVariant == hasPackage {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "copy target must be exactly one variant or package")
	}

	var created *models.DesignApproval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		source, err := repo.FindByID(ctx, input.SourceApprovalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
		}
		if source.SellerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "design does not belong to seller")
		}
		if source.Status != enums.DesignApprovalStatusApproved {
			return pkgerrors.InvalidTransition("design_approval", source.Status.String(),
				enums.DesignApprovalStatusApproved.String())
		}

		var item *catalog.Item
		if hasVariant {
			item, err = catalog.ResolveVariant(ctx, catalogRepo, *input.TargetProductID, *input.TargetVariantID)
		} else {
			item, err = catalog.ResolvePackage(ctx, catalogRepo, *input.TargetServiceID, *input.TargetPackageID)
		}
		if err != nil {
			return err
		}
		if item.SellerID != source.SellerID {
			return pkgerrors.New(pkgerrors.CodeCrossSellerCopy, "copy target belongs to a different seller")
		}

		sourceID := source.ID
		copied := &models.DesignApproval{
			ConversationID: source.ConversationID,
			BuyerID:        source.BuyerID,
			SellerID:       source.SellerID,
			Context:        enums.DesignContextProduct,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ServiceID:      item.ServiceID,
			PackageID:      item.PackageID,
			Status:         enums.DesignApprovalStatusApproved,
			Files:          source.Files,
			CopiedFromID:   &sourceID,
		}
		created, err = repo.Create(ctx, copied)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create copied design approval")
		}

		return s.emitLifecycle(ctx, tx, enums.EventDesignApproved, created, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id, actorID uuid.UUID) (*models.DesignApproval, error) {
	approval, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
	}
	if approval.BuyerID != actorID && approval.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "design does not involve user")
	}
	return approval, nil
}

func (s *service) ListByConversation(ctx context.Context, conversationID, actorID uuid.UUID) ([]BuyerView, error) {
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

	approvals, err := s.repo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list design approvals")
	}
	return Project(approvals), nil
}

func (s *service) emitLifecycle(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, approval *models.DesignApproval, actor Actor) error {
	notes := ""
	if approval.SellerNotes != nil {
		notes = *approval.SellerNotes
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDesignApproval,
		AggregateID:   approval.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
		Data: payloads.DesignLifecycleEvent{
			DesignApprovalID: approval.ID,
			BuyerID:          approval.BuyerID,
			SellerID:         approval.SellerID,
			Status:           approval.Status,
			SellerNotes:      notes,
		},
	})
}

func statusStrings(statuses []enums.DesignApprovalStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, status.String())
	}
	return out
}
