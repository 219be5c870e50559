package conversations

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StartInput opens (or reuses) a thread between a buyer and a seller about
// one listed product or service.
type StartInput struct {
	BuyerID   uuid.UUID
	SellerID  uuid.UUID
	ProductID *uuid.UUID
	ServiceID *uuid.UUID
}

// Service manages conversation threads.
type Service interface {
	Start(ctx context.Context, input StartInput) (*models.Conversation, error)
	Get(ctx context.Context, id, actorID uuid.UUID) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
}

type service struct {
	repo Repository
}

// NewService builds a conversations service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("conversations repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*models.Conversation, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.BuyerID == input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot start a conversation with yourself")
	}
	if input.ProductID != nil && input.ServiceID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation may reference a product or a service, not both")
	}

	existing, err := s.repo.FindByParticipants(ctx, input.BuyerID, input.SellerID, input.ProductID, input.ServiceID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup conversation")
	}

	conversation := &models.Conversation{
		BuyerID:   input.BuyerID,
		SellerID:  input.SellerID,
		ProductID: input.ProductID,
		ServiceID: input.ServiceID,
	}
	created, err := s.repo.Create(ctx, conversation)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id, actorID uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !conversation.Involves(actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "conversation does not involve user")
	}
	return conversation, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return s.repo.ListForUser(ctx, userID)
}
