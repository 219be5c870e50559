package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a resolved purchasable configuration: either a product variant or
// a service package, plus the gating flags that decide checkout eligibility.
type Item struct {
	SellerID       uuid.UUID
	ProductID      *uuid.UUID
	VariantID      *uuid.UUID
	ServiceID      *uuid.UUID
	PackageID      *uuid.UUID
	UnitPrice      decimal.Decimal
	WeightKG       decimal.Decimal
	RequiresQuote  bool
	RequiresDesign bool
	Shippable      bool
}

// Service exposes catalog reads to controllers and sibling domains.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetService(ctx context.Context, id uuid.UUID) (*models.Service, error)
	ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error)
	ListServices(ctx context.Context, params pagination.Params) ([]models.Service, string, error)
	ResolveVariant(ctx context.Context, productID, variantID uuid.UUID) (*Item, error)
	ResolvePackage(ctx context.Context, serviceID, packageID uuid.UUID) (*Item, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	svc, err := s.repo.FindService(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	return s.repo.ListProducts(ctx, params)
}

func (s *service) ListServices(ctx context.Context, params pagination.Params) ([]models.Service, string, error) {
	return s.repo.ListServices(ctx, params)
}

func (s *service) ResolveVariant(ctx context.Context, productID, variantID uuid.UUID) (*Item, error) {
	return ResolveVariant(ctx, s.repo, productID, variantID)
}

func (s *service) ResolvePackage(ctx context.Context, serviceID, packageID uuid.UUID) (*Item, error) {
	return ResolvePackage(ctx, s.repo, serviceID, packageID)
}

// ResolveVariant loads a product variant and its parent gating flags. It is
// exported for callers that need resolution inside their own transaction.
func ResolveVariant(ctx context.Context, repo Repository, productID, variantID uuid.UUID) (*Item, error) {
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not active")
	}

	variant, err := repo.FindVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant.ProductID != product.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}
	if !variant.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant is not active")
	}

	pid := product.ID
	vid := variant.ID
	return &Item{
		SellerID:       product.SellerID,
		ProductID:      &pid,
		VariantID:      &vid,
		UnitPrice:      variant.Price,
		WeightKG:       variant.WeightKG,
		RequiresQuote:  product.RequiresQuote,
		RequiresDesign: product.RequiresDesignApproval,
		Shippable:      true,
	}, nil
}

// ResolvePackage loads a service package and its parent gating flags.
func ResolvePackage(ctx context.Context, repo Repository, serviceID, packageID uuid.UUID) (*Item, error) {
	svc, err := repo.FindService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	if !svc.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service is not active")
	}

	pkg, err := repo.FindPackage(ctx, packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
	}
	if pkg.ServiceID != svc.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package does not belong to service")
	}
	if !pkg.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package is not active")
	}

	sid := svc.ID
	kid := pkg.ID
	return &Item{
		SellerID:       svc.SellerID,
		ServiceID:      &sid,
		PackageID:      &kid,
		UnitPrice:      pkg.Price,
		RequiresQuote:  svc.RequiresQuote,
		RequiresDesign: svc.RequiresDesignApproval,
		Shippable:      false,
	}, nil
}
