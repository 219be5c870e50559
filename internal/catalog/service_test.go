package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
)

type fakeCatalogRepo struct {
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant
	services map[uuid.UUID]*models.Service
	packages map[uuid.UUID]*models.ServicePackage
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: map[uuid.UUID]*models.Product{},
		variants: map[uuid.UUID]*models.ProductVariant{},
		services: map[uuid.UUID]*models.Service{},
		packages: map[uuid.UUID]*models.ServicePackage{},
	}
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCatalogRepo) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (f *fakeCatalogRepo) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	variant, ok := f.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return variant, nil
}

func (f *fakeCatalogRepo) FindService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return svc, nil
}

func (f *fakeCatalogRepo) FindPackage(ctx context.Context, id uuid.UUID) (*models.ServicePackage, error) {
	pkg, ok := f.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pkg, nil
}

func (f *fakeCatalogRepo) CountVariants(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	for _, variant := range f.variants {
		if variant.ProductID == productID && variant.Active {
			count++
		}
	}
	return count, nil
}

func (f *fakeCatalogRepo) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	return nil, "", nil
}

func (f *fakeCatalogRepo) ListServices(ctx context.Context, params pagination.Params) ([]models.Service, string, error) {
	return nil, "", nil
}

func seedGatedProduct(repo *fakeCatalogRepo, sellerID uuid.UUID) (*models.Product, *models.ProductVariant) {
	product := &models.Product{
		ID:                     uuid.New(),
		SellerID:               sellerID,
		Title:                  "custom signet ring",
		RequiresQuote:          true,
		RequiresDesignApproval: true,
		Active:                 true,
	}
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      "silver",
		Price:     decimal.NewFromInt(120),
		WeightKG:  decimal.NewFromFloat(0.05),
		Active:    true,
	}
	repo.products[product.ID] = product
	repo.variants[variant.ID] = variant
	return product, variant
}

func TestResolveVariantCarriesGatingFlags(t *testing.T) {
	repo := newFakeCatalogRepo()
	sellerID := uuid.New()
	product, variant := seedGatedProduct(repo, sellerID)

	item, err := ResolveVariant(context.Background(), repo, product.ID, variant.ID)
	if err != nil {
		t.Fatalf("ResolveVariant: %v", err)
	}
	if item.SellerID != sellerID {
		t.Fatalf("seller must come from the product")
	}
	if !item.RequiresQuote || !item.RequiresDesign {
		t.Fatalf("gating flags must carry through resolution")
	}
	if !item.Shippable {
		t.Fatalf("product variants are shippable")
	}
	if !item.UnitPrice.Equal(variant.Price) {
		t.Fatalf("unit price must come from the variant")
	}
}

func TestResolveVariantRejectsInactiveProduct(t *testing.T) {
	repo := newFakeCatalogRepo()
	product, variant := seedGatedProduct(repo, uuid.New())
	product.Active = false

	_, err := ResolveVariant(context.Background(), repo, product.ID, variant.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveVariantRejectsMismatchedParent(t *testing.T) {
	repo := newFakeCatalogRepo()
	product, _ := seedGatedProduct(repo, uuid.New())
	_, otherVariant := seedGatedProduct(repo, uuid.New())

	_, err := ResolveVariant(context.Background(), repo, product.ID, otherVariant.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveVariantUnknownIsNotFound(t *testing.T) {
	repo := newFakeCatalogRepo()
	_, err := ResolveVariant(context.Background(), repo, uuid.New(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolvePackageIsNotShippable(t *testing.T) {
	repo := newFakeCatalogRepo()
	sellerID := uuid.New()
	svc := &models.Service{ID: uuid.New(), SellerID: sellerID, Title: "wood engraving", Active: true}
	pkg := &models.ServicePackage{
		ID:        uuid.New(),
		ServiceID: svc.ID,
		Name:      "premium",
		Price:     decimal.NewFromInt(200),
		Active:    true,
	}
	repo.services[svc.ID] = svc
	repo.packages[pkg.ID] = pkg

	item, err := ResolvePackage(context.Background(), repo, svc.ID, pkg.ID)
	if err != nil {
		t.Fatalf("ResolvePackage: %v", err)
	}
	if item.Shippable {
		t.Fatalf("service packages are never shippable")
	}
	if item.ServiceID == nil || item.ProductID != nil {
		t.Fatalf("resolved package must carry only service identifiers")
	}
}

func TestResolvePackageRejectsInactivePackage(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := &models.Service{ID: uuid.New(), SellerID: uuid.New(), Title: "wood engraving", Active: true}
	pkg := &models.ServicePackage{ID: uuid.New(), ServiceID: svc.ID, Name: "premium", Price: decimal.NewFromInt(200)}
	repo.services[svc.ID] = svc
	repo.packages[pkg.ID] = pkg

	_, err := ResolvePackage(context.Background(), repo, svc.ID, pkg.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
