package quotes

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
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
)

type fakeQuotesRepo struct {
	quotes        map[uuid.UUID]*models.Quote
	conversations map[uuid.UUID]*models.Conversation
	approvals     map[uuid.UUID]*models.DesignApproval
}

func newFakeQuotesRepo() *fakeQuotesRepo {
	return &fakeQuotesRepo{
		quotes:        map[uuid.UUID]*models.Quote{},
		conversations: map[uuid.UUID]*models.Conversation{},
		approvals:     map[uuid.UUID]*models.DesignApproval{},
	}
}

func (f *fakeQuotesRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeQuotesRepo) Create(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	quote.ID = uuid.New()
	f.quotes[quote.ID] = quote
	return quote, nil
}

func (f *fakeQuotesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *quote
	return &copied, nil
}

func sameScopeID(a, b *uuid.UUID) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func (f *fakeQuotesRepo) FindOutstandingRequested(ctx context.Context, conversationID uuid.UUID, productID, variantID, serviceID, packageID *uuid.UUID) (*models.Quote, error) {
	for _, quote := range f.quotes {
		if quote.ConversationID != conversationID || quote.Status != enums.QuoteStatusRequested {
			continue
		}
		if sameScopeID(quote.ProductID, productID) && sameScopeID(quote.VariantID, variantID) &&
			sameScopeID(quote.ServiceID, serviceID) && sameScopeID(quote.PackageID, packageID) {
			copied := *quote
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeQuotesRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Quote, error) {
	var out []models.Quote
	for _, quote := range f.quotes {
		if quote.ConversationID == conversationID {
			out = append(out, *quote)
		}
	}
	return out, nil
}

func (f *fakeQuotesRepo) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.QuoteStatus, updates map[string]any) (int64, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return 0, nil
	}
	allowed := false
	for _, status := range from {
		if quote.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, nil
	}
	if status, ok := updates["status"].(enums.QuoteStatus); ok {
		quote.Status = status
	}
	if price, ok := updates["quoted_price"].(decimal.Decimal); ok {
		quote.QuotedPrice = &price
	}
	if quantity, ok := updates["quantity"].(int); ok {
		quote.Quantity = quantity
	}
	if expires, ok := updates["expires_at"].(time.Time); ok {
		quote.ExpiresAt = &expires
	}
	return 1, nil
}

func (f *fakeQuotesRepo) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conversation, nil
}

func (f *fakeQuotesRepo) FindApprovedDesign(ctx context.Context, conversationID uuid.UUID, variantID, packageID *uuid.UUID) (*models.DesignApproval, error) {
	for _, approval := range f.approvals {
		if approval.ConversationID == conversationID {
			return approval, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeQuotesRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeCatalogRepo struct {
	products map[uuid.UUID]*models.Product
	services map[uuid.UUID]*models.Service
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: map[uuid.UUID]*models.Product{},
		services: map[uuid.UUID]*models.Service{},
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
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) FindService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return svc, nil
}

func (f *fakeCatalogRepo) FindPackage(ctx context.Context, id uuid.UUID) (*models.ServicePackage, error) {
	return nil, gorm.ErrRecordNotFound
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

type quotesFixture struct {
	svc     *service
	repo    *fakeQuotesRepo
	catalog *fakeCatalogRepo
	outbox  *fakeOutbox
}

func newQuotesFixture(t *testing.T) *quotesFixture {
	t.Helper()
	fixture := &quotesFixture{
		repo:    newFakeQuotesRepo(),
		catalog: newFakeCatalogRepo(),
		outbox:  &fakeOutbox{},
	}
	svc, err := NewService(fixture.repo, fixture.catalog, &fakeTxRunner{}, fixture.outbox)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fixture.svc = svc.(*service)
	return fixture
}

func (f *quotesFixture) seedConversation() *models.Conversation {
	conversation := &models.Conversation{ID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New()}
	f.repo.conversations[conversation.ID] = conversation
	return conversation
}

func (f *quotesFixture) seedProduct(requiresQuote, requiresDesign bool) uuid.UUID {
	product := &models.Product{ID: uuid.New(), SellerID: uuid.New(), RequiresQuote: requiresQuote,
		RequiresDesignApproval: requiresDesign, Active: true}
	f.catalog.products[product.ID] = product
	return product.ID
}

func TestRequestCreatesQuote(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	productID := fixture.seedProduct(true, false)

	quote, err := fixture.svc.Request(context.Background(), RequestInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Quantity:       5,
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if quote.Status != enums.QuoteStatusRequested {
		t.Fatalf("expected requested, got %s", quote.Status)
	}
	if quote.SellerID != conversation.SellerID {
		t.Fatalf("expected quote bound to the conversation seller")
	}
	if len(fixture.outbox.events) != 1 || fixture.outbox.events[0].EventType != enums.EventQuoteRequested {
		t.Fatalf("expected quote requested event")
	}
}

func TestRequestRefreshesOutstandingQuote(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	productID := fixture.seedProduct(true, false)
	buyer := Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer}

	first, err := fixture.svc.Request(context.Background(), RequestInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Quantity:       5,
		Actor:          buyer,
	})
	if err != nil {
		t.Fatalf("first Request: %v", err)
	}
	second, err := fixture.svc.Request(context.Background(), RequestInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Quantity:       8,
		Actor:          buyer,
	})
	if err != nil {
		t.Fatalf("second Request: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repeat request must refresh the existing quote, not stack a new one")
	}
	if fixture.repo.quotes[first.ID].Quantity != 8 {
		t.Fatalf("expected quantity refreshed")
	}
	if len(fixture.repo.quotes) != 1 {
		t.Fatalf("expected a single negotiation row, got %d", len(fixture.repo.quotes))
	}
}

func TestRequestRejectsNonBuyer(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	productID := fixture.seedProduct(true, false)

	_, err := fixture.svc.Request(context.Background(), RequestInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Quantity:       1,
		Actor:          Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestScopeRequiresExactlyOneItem(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	productID, serviceID := uuid.New(), uuid.New()

	_, err := fixture.svc.Request(context.Background(), RequestInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID, ServiceID: &serviceID},
		Quantity:       1,
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendSupersedesRequestedQuote(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	productID := fixture.seedProduct(true, false)

	requested, err := fixture.svc.Request(context.Background(), RequestInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Quantity:       3,
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	sent, err := fixture.svc.Send(context.Background(), SendInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Price:          decimal.NewFromInt(120),
		Quantity:       3,
		Actor:          Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.ID != requested.ID {
		t.Fatalf("send must supersede the requested quote in place")
	}
	if sent.Status != enums.QuoteStatusSent || sent.QuotedPrice == nil {
		t.Fatalf("expected sent quote with a price")
	}
	if sent.ExpiresAt == nil {
		t.Fatalf("expected default expiry applied")
	}
}

func TestSendRequiresApprovedDesignWhenDoubleGated(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	productID := fixture.seedProduct(true, true)
	seller := Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller}

	_, err := fixture.svc.Send(context.Background(), SendInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Price:          decimal.NewFromInt(80),
		Quantity:       1,
		Actor:          seller,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeRequirementNotMet {
		t.Fatalf("expected requirement error, got %v", err)
	}

	approval := &models.DesignApproval{ID: uuid.New(), ConversationID: conversation.ID,
		Status: enums.DesignApprovalStatusApproved}
	fixture.repo.approvals[approval.ID] = approval

	sent, err := fixture.svc.Send(context.Background(), SendInput{
		ConversationID: conversation.ID,
		Scope:          ItemScope{ProductID: &productID},
		Price:          decimal.NewFromInt(80),
		Quantity:       1,
		Actor:          seller,
	})
	if err != nil {
		t.Fatalf("Send with approved design: %v", err)
	}
	if sent.DesignApprovalID == nil || *sent.DesignApprovalID != approval.ID {
		t.Fatalf("expected approval auto-linked to the quote")
	}
}

func TestAcceptSentQuote(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	price := decimal.NewFromInt(60)
	expires := time.Now().Add(time.Hour)
	quote := &models.Quote{ID: uuid.New(), ConversationID: conversation.ID,
		BuyerID: conversation.BuyerID, SellerID: conversation.SellerID,
		Status: enums.QuoteStatusSent, QuotedPrice: &price, Quantity: 1, ExpiresAt: &expires}
	fixture.repo.quotes[quote.ID] = quote

	err := fixture.svc.Accept(context.Background(), DecisionInput{
		QuoteID: quote.ID,
		Actor:   Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if fixture.repo.quotes[quote.ID].Status != enums.QuoteStatusAccepted {
		t.Fatalf("expected accepted, got %s", fixture.repo.quotes[quote.ID].Status)
	}
}

func TestAcceptExpiredQuote(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	price := decimal.NewFromInt(60)
	expires := time.Now().Add(-time.Hour)
	quote := &models.Quote{ID: uuid.New(), ConversationID: conversation.ID,
		BuyerID: conversation.BuyerID, SellerID: conversation.SellerID,
		Status: enums.QuoteStatusSent, QuotedPrice: &price, Quantity: 1, ExpiresAt: &expires}
	fixture.repo.quotes[quote.ID] = quote

	err := fixture.svc.Accept(context.Background(), DecisionInput{
		QuoteID: quote.ID,
		Actor:   Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeExpired {
		t.Fatalf("expected expired error, got %v", err)
	}
	if fixture.repo.quotes[quote.ID].Status != enums.QuoteStatusExpired {
		t.Fatalf("expected the row flipped to expired on the failed accept")
	}
}

func TestRejectRequiresBuyer(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	price := decimal.NewFromInt(60)
	expires := time.Now().Add(time.Hour)
	quote := &models.Quote{ID: uuid.New(), ConversationID: conversation.ID,
		BuyerID: conversation.BuyerID, SellerID: conversation.SellerID,
		Status: enums.QuoteStatusSent, QuotedPrice: &price, Quantity: 1, ExpiresAt: &expires}
	fixture.repo.quotes[quote.ID] = quote

	err := fixture.svc.Reject(context.Background(), DecisionInput{
		QuoteID: quote.ID,
		Actor:   Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetProjectsReadTimeExpiry(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()
	price := decimal.NewFromInt(60)
	expires := time.Now().Add(-time.Minute)
	quote := &models.Quote{ID: uuid.New(), ConversationID: conversation.ID,
		BuyerID: conversation.BuyerID, SellerID: conversation.SellerID,
		Status: enums.QuoteStatusSent, QuotedPrice: &price, Quantity: 1, ExpiresAt: &expires}
	fixture.repo.quotes[quote.ID] = quote

	got, err := fixture.svc.Get(context.Background(), quote.ID, conversation.BuyerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != enums.QuoteStatusExpired {
		t.Fatalf("expected read-time expiry projection, got %s", got.Status)
	}
	// The stored row is untouched until a guarded action flips it.
	if fixture.repo.quotes[quote.ID].Status != enums.QuoteStatusSent {
		t.Fatalf("read must not write the expiry")
	}
}

func TestListByConversationChecksMembership(t *testing.T) {
	fixture := newQuotesFixture(t)
	conversation := fixture.seedConversation()

	_, err := fixture.svc.ListByConversation(context.Background(), conversation.ID, uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
