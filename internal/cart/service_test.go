package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
)

type fakeCartRepo struct {
	items map[uuid.UUID]*models.CartItem
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: map[uuid.UUID]*models.CartItem{}}
}

func (f *fakeCartRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCartRepo) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeCartRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, item := range f.items {
		if item.BuyerID == buyerID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeCartRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	item, ok := f.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	return nil
}

func (f *fakeCartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

func (f *fakeCartRepo) ClearBuyer(ctx context.Context, buyerID uuid.UUID) error {
	for id, item := range f.items {
		if item.BuyerID == buyerID {
			delete(f.items, id)
		}
	}
	return nil
}

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

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

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

func (f *fakeCatalogRepo) addVariant(sellerID uuid.UUID, price int64) (uuid.UUID, uuid.UUID) {
	product := &models.Product{ID: uuid.New(), SellerID: sellerID, Title: "hand-thrown mug", Active: true}
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      "glazed",
		Price:     decimal.NewFromInt(price),
		WeightKG:  decimal.NewFromInt(1),
		Active:    true,
	}
	f.products[product.ID] = product
	f.variants[variant.ID] = variant
	return product.ID, variant.ID
}

func (f *fakeCatalogRepo) addPackage(sellerID uuid.UUID, price int64) (uuid.UUID, uuid.UUID) {
	svc := &models.Service{ID: uuid.New(), SellerID: sellerID, Title: "logo engraving", Active: true}
	pkg := &models.ServicePackage{
		ID:        uuid.New(),
		ServiceID: svc.ID,
		Name:      "standard",
		Price:     decimal.NewFromInt(price),
		Active:    true,
	}
	f.services[svc.ID] = svc
	f.packages[pkg.ID] = pkg
	return svc.ID, pkg.ID
}

type fakeQuoteFinder struct {
	quotes map[uuid.UUID]*models.Quote
}

func (f *fakeQuoteFinder) FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quote, nil
}

type cartFixture struct {
	svc     Service
	repo    *fakeCartRepo
	catalog *fakeCatalogRepo
	quotes  *fakeQuoteFinder
	buyerID uuid.UUID
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	repo := newFakeCartRepo()
	catalogRepo := newFakeCatalogRepo()
	quotes := &fakeQuoteFinder{quotes: map[uuid.UUID]*models.Quote{}}
	svc, err := NewService(repo, catalogRepo, quotes)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &cartFixture{svc: svc, repo: repo, catalog: catalogRepo, quotes: quotes, buyerID: uuid.New()}
}

func TestAddResolvesVariantLine(t *testing.T) {
	fx := newCartFixture(t)
	sellerID := uuid.New()
	productID, variantID := fx.catalog.addVariant(sellerID, 45)

	item, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if item.SellerID != sellerID {
		t.Fatalf("seller must come from the listing, got %s", item.SellerID)
	}
	if !item.UnitPrice.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("unit price must come from the variant, got %s", item.UnitPrice)
	}
	if len(fx.repo.items) != 1 {
		t.Fatalf("expected one cart line, got %d", len(fx.repo.items))
	}
}

func TestAddRequiresExactlyOneTarget(t *testing.T) {
	fx := newCartFixture(t)
	productID, variantID := fx.catalog.addVariant(uuid.New(), 45)
	serviceID, packageID := fx.catalog.addPackage(uuid.New(), 80)

	inputs := []AddInput{
		{BuyerID: fx.buyerID, ProductID: &productID, Quantity: 1},
		{BuyerID: fx.buyerID, ProductID: &productID, VariantID: &variantID, ServiceID: &serviceID, PackageID: &packageID, Quantity: 1},
		{BuyerID: fx.buyerID, Quantity: 1},
	}
	for _, input := range inputs {
		if _, err := fx.svc.Add(context.Background(), input); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestAddRejectsOwnListing(t *testing.T) {
	fx := newCartFixture(t)
	productID, variantID := fx.catalog.addVariant(fx.buyerID, 45)

	_, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		Quantity:  1,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRejectsInactiveVariant(t *testing.T) {
	fx := newCartFixture(t)
	productID, variantID := fx.catalog.addVariant(uuid.New(), 45)
	fx.catalog.variants[variantID].Active = false

	_, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		Quantity:  1,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddUsesAcceptedQuotePrice(t *testing.T) {
	fx := newCartFixture(t)
	sellerID := uuid.New()
	productID, variantID := fx.catalog.addVariant(sellerID, 100)

	quoted := decimal.NewFromInt(75)
	quote := &models.Quote{
		ID:          uuid.New(),
		BuyerID:     fx.buyerID,
		SellerID:    sellerID,
		ProductID:   &productID,
		VariantID:   &variantID,
		Status:      enums.QuoteStatusAccepted,
		QuotedPrice: &quoted,
		Quantity:    3,
	}
	fx.quotes.quotes[quote.ID] = quote

	item, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		QuoteID:   &quote.ID,
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !item.UnitPrice.Equal(quoted) {
		t.Fatalf("quoted price must override the listing price, got %s", item.UnitPrice)
	}
	if item.QuoteID == nil || *item.QuoteID != quote.ID {
		t.Fatalf("line must stay bound to its quote")
	}
}

func TestAddRejectsForeignQuote(t *testing.T) {
	fx := newCartFixture(t)
	productID, variantID := fx.catalog.addVariant(uuid.New(), 100)

	quote := &models.Quote{
		ID:        uuid.New(),
		BuyerID:   uuid.New(),
		ProductID: &productID,
		VariantID: &variantID,
		Status:    enums.QuoteStatusAccepted,
		Quantity:  1,
	}
	fx.quotes.quotes[quote.ID] = quote

	_, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		QuoteID:   &quote.ID,
		Quantity:  1,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAddRejectsUnacceptedQuote(t *testing.T) {
	fx := newCartFixture(t)
	productID, variantID := fx.catalog.addVariant(uuid.New(), 100)

	quote := &models.Quote{
		ID:        uuid.New(),
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		Status:    enums.QuoteStatusSent,
		Quantity:  1,
	}
	fx.quotes.quotes[quote.ID] = quote

	_, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		QuoteID:   &quote.ID,
		Quantity:  1,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAddRejectsQuoteScopeMismatch(t *testing.T) {
	fx := newCartFixture(t)
	sellerID := uuid.New()
	productID, variantID := fx.catalog.addVariant(sellerID, 100)
	otherProductID, otherVariantID := fx.catalog.addVariant(sellerID, 60)

	quote := &models.Quote{
		ID:        uuid.New(),
		BuyerID:   fx.buyerID,
		ProductID: &otherProductID,
		VariantID: &otherVariantID,
		Status:    enums.QuoteStatusAccepted,
		Quantity:  1,
	}
	fx.quotes.quotes[quote.ID] = quote

	_, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		QuoteID:   &quote.ID,
		Quantity:  1,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddPinsQuantityToQuote(t *testing.T) {
	fx := newCartFixture(t)
	productID, variantID := fx.catalog.addVariant(uuid.New(), 100)

	quote := &models.Quote{
		ID:        uuid.New(),
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		Status:    enums.QuoteStatusAccepted,
		Quantity:  5,
	}
	fx.quotes.quotes[quote.ID] = quote

	_, err := fx.svc.Add(context.Background(), AddInput{
		BuyerID:   fx.buyerID,
		ProductID: &productID,
		VariantID: &variantID,
		QuoteID:   &quote.ID,
		Quantity:  2,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateQuantityChecksOwnership(t *testing.T) {
	fx := newCartFixture(t)
	item, _ := fx.repo.Create(context.Background(), &models.CartItem{
		BuyerID:   uuid.New(),
		SellerID:  uuid.New(),
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(10),
	})

	err := fx.svc.UpdateQuantity(context.Background(), fx.buyerID, item.ID, 4)
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateQuantityFixedForQuotedLine(t *testing.T) {
	fx := newCartFixture(t)
	quoteID := uuid.New()
	item, _ := fx.repo.Create(context.Background(), &models.CartItem{
		BuyerID:   fx.buyerID,
		SellerID:  uuid.New(),
		QuoteID:   &quoteID,
		Quantity:  3,
		UnitPrice: decimal.NewFromInt(75),
	})

	err := fx.svc.UpdateQuantity(context.Background(), fx.buyerID, item.ID, 5)
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fx.repo.items[item.ID].Quantity != 3 {
		t.Fatalf("quoted line quantity must not change")
	}
}

func TestRemoveDeletesOwnedItem(t *testing.T) {
	fx := newCartFixture(t)
	item, _ := fx.repo.Create(context.Background(), &models.CartItem{
		BuyerID:   fx.buyerID,
		SellerID:  uuid.New(),
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(10),
	})

	if err := fx.svc.Remove(context.Background(), fx.buyerID, item.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(fx.repo.items) != 0 {
		t.Fatalf("expected empty cart after removal")
	}
}
