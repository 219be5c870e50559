package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/internal/cart"
	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/internal/purchase"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/craftlane/craftlane-backend/pkg/payments"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

type fakeCheckoutRepo struct {
	sessions     map[uuid.UUID]*models.CheckoutSession
	orders       []models.Order
	bookings     []models.Booking
	transactions []models.Transaction
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{sessions: map[uuid.UUID]*models.CheckoutSession{}}
}

func (f *fakeCheckoutRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCheckoutRepo) CreateSession(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, error) {
	session.ID = uuid.New()
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeCheckoutRepo) CreateOrders(ctx context.Context, orders []models.Order) error {
	f.orders = append(f.orders, orders...)
	return nil
}

func (f *fakeCheckoutRepo) CreateBookings(ctx context.Context, bookings []models.Booking) error {
	f.bookings = append(f.bookings, bookings...)
	return nil
}

func (f *fakeCheckoutRepo) CreateTransactions(ctx context.Context, transactions []models.Transaction) error {
	f.transactions = append(f.transactions, transactions...)
	return nil
}

func (f *fakeCheckoutRepo) FindSession(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return session, nil
}

type fakeCartRepo struct {
	items   []models.CartItem
	cleared []uuid.UUID
}

func (f *fakeCartRepo) WithTx(tx *gorm.DB) cart.Repository { return f }

func (f *fakeCartRepo) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	return item, nil
}

func (f *fakeCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCartRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	return f.items, nil
}

func (f *fakeCartRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return nil
}

func (f *fakeCartRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeCartRepo) ClearBuyer(ctx context.Context, buyerID uuid.UUID) error {
	f.cleared = append(f.cleared, buyerID)
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
	return 0, nil
}

func (f *fakeCatalogRepo) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	return nil, "", nil
}

func (f *fakeCatalogRepo) ListServices(ctx context.Context, params pagination.Params) ([]models.Service, string, error) {
	return nil, "", nil
}

func (f *fakeCatalogRepo) addVariant(sellerID uuid.UUID, price, weight decimal.Decimal) (uuid.UUID, uuid.UUID) {
	productID, variantID := uuid.New(), uuid.New()
	f.products[productID] = &models.Product{ID: productID, SellerID: sellerID, Active: true}
	f.variants[variantID] = &models.ProductVariant{ID: variantID, ProductID: productID, Price: price, WeightKG: weight, Active: true}
	return productID, variantID
}

func (f *fakeCatalogRepo) addPackage(sellerID uuid.UUID, price decimal.Decimal) (uuid.UUID, uuid.UUID) {
	serviceID, packageID := uuid.New(), uuid.New()
	f.services[serviceID] = &models.Service{ID: serviceID, SellerID: sellerID, Active: true}
	f.packages[packageID] = &models.ServicePackage{ID: packageID, ServiceID: serviceID, Price: price, Active: true}
	return serviceID, packageID
}

type fakeValidator struct {
	fn func(ctx context.Context, tx *gorm.DB, input purchase.Input) (*purchase.Decision, error)
}

func (f *fakeValidator) CanPurchase(ctx context.Context, tx *gorm.DB, input purchase.Input) (*purchase.Decision, error) {
	if f.fn != nil {
		return f.fn(ctx, tx, input)
	}
	return &purchase.Decision{Allowed: true}, nil
}

type fakeGateway struct {
	charges []payments.Charge
	fail    bool
}

func (f *fakeGateway) CreateRedirect(ctx context.Context, charge payments.Charge) (*payments.Redirect, error) {
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	f.charges = append(f.charges, charge)
	return &payments.Redirect{URL: "https://pay.example/" + charge.Reference, Reference: charge.Reference, Amount: charge.Amount}, nil
}

func (f *fakeGateway) RefundPayment(ctx context.Context, refund payments.Refund) error { return nil }

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type checkoutFixture struct {
	svc      Service
	repo     *fakeCheckoutRepo
	cartRepo *fakeCartRepo
	catalog  *fakeCatalogRepo
	gateway  *fakeGateway
	outbox   *fakeOutbox
}

func newCheckoutFixture(t *testing.T, validator requirementValidator) *checkoutFixture {
	t.Helper()
	fixture := &checkoutFixture{
		repo:     newFakeCheckoutRepo(),
		cartRepo: &fakeCartRepo{},
		catalog:  newFakeCatalogRepo(),
		gateway:  &fakeGateway{},
		outbox:   &fakeOutbox{},
	}
	if validator == nil {
		validator = &fakeValidator{}
	}
	svc, err := NewService(fixture.repo, fixture.cartRepo, fixture.catalog, validator,
		fixture.gateway, &fakeTxRunner{}, fixture.outbox, decimal.NewFromFloat(0.1))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fixture.svc = svc
	return fixture
}

func testDestination() *types.Address {
	return &types.Address{Line1: "1 Workshop Lane", City: "Chiang Mai", PostalCode: "50200", Country: "TH"}
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	fixture := newCheckoutFixture(t, nil)
	_, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       uuid.New(),
		PaymentMethod: enums.PaymentMethodBankTransfer,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutRequiresDestinationForShippableLines(t *testing.T) {
	fixture := newCheckoutFixture(t, nil)
	buyerID := uuid.New()
	productID, variantID := fixture.catalog.addVariant(uuid.New(), decimal.NewFromInt(50), decimal.NewFromFloat(0.5))
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, ProductID: &productID, VariantID: &variantID, Quantity: 1},
	}

	_, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fixture.repo.orders) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestCheckoutConvertsMixedCart(t *testing.T) {
	fixture := newCheckoutFixture(t, nil)
	buyerID := uuid.New()
	sellerA, sellerB := uuid.New(), uuid.New()
	productID, variantID := fixture.catalog.addVariant(sellerA, decimal.NewFromInt(100), decimal.NewFromInt(1))
	serviceID, packageID := fixture.catalog.addPackage(sellerB, decimal.NewFromInt(40))
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, SellerID: sellerA, ProductID: &productID, VariantID: &variantID, Quantity: 2},
		{ID: uuid.New(), BuyerID: buyerID, SellerID: sellerB, ServiceID: &serviceID, PackageID: &packageID, Quantity: 1},
	}

	result, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Destination:   testDestination(),
		ShippingCost:  decimal.NewFromInt(20),
		Actor:         Actor{UserID: buyerID, Role: enums.UserRoleBuyer},
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if len(result.Orders) != 1 || len(result.Bookings) != 1 {
		t.Fatalf("expected 1 order and 1 booking, got %d/%d", len(result.Orders), len(result.Bookings))
	}
	order := result.Orders[0]
	if !order.TotalAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("order total = %s, want 200", order.TotalAmount)
	}
	if !order.ShippingCost.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("sole order line should carry the full shipping cost, got %s", order.ShippingCost)
	}
	if !result.Session.TotalAmount.Equal(decimal.NewFromInt(260)) {
		t.Fatalf("session total = %s, want 260", result.Session.TotalAmount)
	}

	if len(fixture.repo.transactions) != 2 {
		t.Fatalf("expected a transaction per line, got %d", len(fixture.repo.transactions))
	}
	for _, transaction := range fixture.repo.transactions {
		if transaction.Status != enums.TransactionStatusPending {
			t.Fatalf("transactions must start pending, got %s", transaction.Status)
		}
	}
	orderTx := fixture.repo.transactions[0]
	// 200 goods + 20 shipping charged, commission on goods only.
	if !orderTx.Amount.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("order transaction amount = %s, want 220", orderTx.Amount)
	}
	if !orderTx.CommissionAmount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("commission = %s, want 20", orderTx.CommissionAmount)
	}
	if !orderTx.SellerPayout.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("seller payout = %s, want 200", orderTx.SellerPayout)
	}

	if len(fixture.cartRepo.cleared) != 1 || fixture.cartRepo.cleared[0] != buyerID {
		t.Fatalf("expected cart cleared for buyer")
	}
	if len(fixture.outbox.events) != 1 || fixture.outbox.events[0].EventType != enums.EventCheckoutConverted {
		t.Fatalf("expected checkout converted event")
	}
	if result.Redirect != nil {
		t.Fatalf("bank transfer checkout must not redirect")
	}
}

func TestCheckoutUsesAcceptedQuotePrice(t *testing.T) {
	quotedPrice := decimal.NewFromInt(75)
	quoteID := uuid.New()
	validator := &fakeValidator{fn: func(ctx context.Context, tx *gorm.DB, input purchase.Input) (*purchase.Decision, error) {
		return &purchase.Decision{
			Allowed: true,
			Quote:   &models.Quote{ID: quoteID, QuotedPrice: &quotedPrice},
		}, nil
	}}
	fixture := newCheckoutFixture(t, validator)

	buyerID := uuid.New()
	productID, variantID := fixture.catalog.addVariant(uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(1))
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, ProductID: &productID, VariantID: &variantID, Quantity: 2, QuoteID: &quoteID},
	}

	result, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Destination:   testDestination(),
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	order := result.Orders[0]
	if !order.UnitPrice.Equal(quotedPrice) {
		t.Fatalf("unit price = %s, want quoted %s", order.UnitPrice, quotedPrice)
	}
	if order.QuoteID == nil || *order.QuoteID != quoteID {
		t.Fatalf("expected order linked to quote")
	}
}

type fakeQuoteSource struct {
	quotes map[uuid.UUID]*models.Quote
}

func (f *fakeQuoteSource) WithTx(tx *gorm.DB) purchase.Repository { return f }

func (f *fakeQuoteSource) FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quote, nil
}

func (f *fakeQuoteSource) FindApprovedDesignForBuyer(ctx context.Context, buyerID, sellerID uuid.UUID, variantID, packageID *uuid.UUID) (*models.DesignApproval, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeQuoteSource) CountActiveVariants(ctx context.Context, productID uuid.UUID) (int64, error) {
	return 0, nil
}

func TestCheckoutAppliesQuoteOnUngatedItem(t *testing.T) {
	buyerID := uuid.New()
	sellerID := uuid.New()
	quotedPrice := decimal.NewFromInt(50)

	quoteSource := &fakeQuoteSource{quotes: map[uuid.UUID]*models.Quote{}}
	validator, err := purchase.NewValidator(quoteSource)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	fixture := newCheckoutFixture(t, validator)

	productID, variantID := fixture.catalog.addVariant(sellerID, decimal.NewFromInt(80), decimal.NewFromInt(1))
	quote := &models.Quote{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		SellerID:    sellerID,
		ProductID:   &productID,
		VariantID:   &variantID,
		Status:      enums.QuoteStatusAccepted,
		Quantity:    1,
		QuotedPrice: &quotedPrice,
	}
	quoteSource.quotes[quote.ID] = quote
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, ProductID: &productID, VariantID: &variantID, Quantity: 1, QuoteID: &quote.ID},
	}

	result, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Destination:   testDestination(),
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	order := result.Orders[0]
	if !order.UnitPrice.Equal(quotedPrice) {
		t.Fatalf("unit price = %s, want negotiated %s", order.UnitPrice, quotedPrice)
	}
	if order.QuoteID == nil || *order.QuoteID != quote.ID {
		t.Fatalf("order must carry the quote it was priced from")
	}
}

func TestCheckoutBlocksUnmetRequirements(t *testing.T) {
	validator := &fakeValidator{fn: func(ctx context.Context, tx *gorm.DB, input purchase.Input) (*purchase.Decision, error) {
		return &purchase.Decision{Allowed: false, Reasons: []string{"quote_required"}}, nil
	}}
	fixture := newCheckoutFixture(t, validator)

	buyerID := uuid.New()
	productID, variantID := fixture.catalog.addVariant(uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(1))
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, ProductID: &productID, VariantID: &variantID, Quantity: 1},
	}

	_, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodBankTransfer,
		Destination:   testDestination(),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeRequirementNotMet {
		t.Fatalf("expected requirement error, got %v", err)
	}
	if len(fixture.repo.orders) != 0 || len(fixture.cartRepo.cleared) != 0 {
		t.Fatalf("blocked checkout must not persist or clear anything")
	}
}

func TestCheckoutGatewayRedirect(t *testing.T) {
	fixture := newCheckoutFixture(t, nil)
	buyerID := uuid.New()
	serviceID, packageID := fixture.catalog.addPackage(uuid.New(), decimal.NewFromInt(40))
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, ServiceID: &serviceID, PackageID: &packageID, Quantity: 1},
	}

	result, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodGateway,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if result.Redirect == nil {
		t.Fatal("expected redirect for gateway payment")
	}
	if result.Session.GatewayReference == nil || *result.Session.GatewayReference != result.Redirect.Reference {
		t.Fatalf("redirect reference must match the session")
	}
	if len(fixture.gateway.charges) != 1 || !fixture.gateway.charges[0].Amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected one charge for the session total")
	}
}

func TestCheckoutGatewayFailureKeepsSession(t *testing.T) {
	fixture := newCheckoutFixture(t, nil)
	fixture.gateway.fail = true
	buyerID := uuid.New()
	serviceID, packageID := fixture.catalog.addPackage(uuid.New(), decimal.NewFromInt(40))
	fixture.cartRepo.items = []models.CartItem{
		{ID: uuid.New(), BuyerID: buyerID, ServiceID: &serviceID, PackageID: &packageID, Quantity: 1},
	}

	_, err := fixture.svc.Checkout(context.Background(), Input{
		BuyerID:       buyerID,
		PaymentMethod: enums.PaymentMethodGateway,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	// The session committed before the gateway call, so retry is possible.
	if len(fixture.repo.sessions) != 1 {
		t.Fatalf("expected session kept for payment retry")
	}
}

func TestGetSessionChecksOwnership(t *testing.T) {
	fixture := newCheckoutFixture(t, nil)
	buyerID := uuid.New()
	session, _ := fixture.repo.CreateSession(context.Background(), &models.CheckoutSession{BuyerID: buyerID})

	if _, err := fixture.svc.GetSession(context.Background(), session.ID, buyerID); err != nil {
		t.Fatalf("owner should read own session: %v", err)
	}
	_, err := fixture.svc.GetSession(context.Background(), session.ID, uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
