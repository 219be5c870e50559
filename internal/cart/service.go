package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddInput is one line the buyer wants in the cart: a product variant or a
// service package, optionally bound to an accepted quote.
type AddInput struct {
	BuyerID   uuid.UUID
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	ServiceID *uuid.UUID
	PackageID *uuid.UUID
	QuoteID   *uuid.UUID
	Quantity  int
}

// Service manages the buyer's cart. The cart is a staging area only; every
// price and gating rule is re-validated by checkout inside its transaction.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) error
	Remove(ctx context.Context, buyerID, itemID uuid.UUID) error
	List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
}

type quoteFinder interface {
	FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	quotes  quoteFinder
}

// NewService builds a cart service.
func NewService(repo Repository, catalogRepo catalog.Repository, quotes quoteFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote finder required")
	}
	return &service{repo: repo, catalog: catalogRepo, quotes: quotes}, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.CartItem, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var item *catalog.Item
	var err error
	switch {
	case input.ProductID != nil && input.VariantID != nil && input.ServiceID == nil && input.PackageID == nil:
		item, err = catalog.ResolveVariant(ctx, s.catalog, *input.ProductID, *input.VariantID)
	case input.ServiceID != nil && input.PackageID != nil && input.ProductID == nil && input.VariantID == nil:
		item, err = catalog.ResolvePackage(ctx, s.catalog, *input.ServiceID, *input.PackageID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line requires exactly one variant or package")
	}
	if err != nil {
		return nil, err
	}
	if item.SellerID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot purchase your own listing")
	}

	unitPrice := item.UnitPrice
	if input.QuoteID != nil {
		quote, err := s.quotes.FindQuote(ctx, *input.QuoteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		if quote.BuyerID != input.BuyerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote does not belong to buyer")
		}
		if quote.Status != enums.QuoteStatusAccepted {
			return nil, pkgerrors.InvalidTransition("quote", quote.Status.String(), enums.QuoteStatusAccepted.String())
		}
		if !quote.MatchesScope(item.ProductID, item.VariantID, item.ServiceID, item.PackageID) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote targets a different item")
		}
		if quote.Quantity != input.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must match the accepted quote")
		}
		if quote.QuotedPrice != nil {
			unitPrice = *quote.QuotedPrice
		}
	}

	line := &models.CartItem{
		BuyerID:   input.BuyerID,
		SellerID:  item.SellerID,
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		ServiceID: item.ServiceID,
		PackageID: item.PackageID,
		QuoteID:   input.QuoteID,
		Quantity:  input.Quantity,
		UnitPrice: unitPrice,
	}
	created, err := s.repo.Create(ctx, line)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return created, nil
}

func (s *service) UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	item, err := s.ownedItem(ctx, buyerID, itemID)
	if err != nil {
		return err
	}
	if item.QuoteID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity of a quoted line is fixed by the quote")
	}
	if err := s.repo.UpdateQuantity(ctx, item.ID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart quantity")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, buyerID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, buyerID, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

func (s *service) ownedItem(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item does not belong to buyer")
	}
	return item, nil
}
