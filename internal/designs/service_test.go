package designs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

type fakeDesignsRepo struct {
	approvals     map[uuid.UUID]*models.DesignApproval
	conversations map[uuid.UUID]*models.Conversation
	quotes        map[uuid.UUID]*models.Quote
}

func newFakeDesignsRepo() *fakeDesignsRepo {
	return &fakeDesignsRepo{
		approvals:     map[uuid.UUID]*models.DesignApproval{},
		conversations: map[uuid.UUID]*models.Conversation{},
		quotes:        map[uuid.UUID]*models.Quote{},
	}
}

func (f *fakeDesignsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeDesignsRepo) Create(ctx context.Context, approval *models.DesignApproval) (*models.DesignApproval, error) {
	approval.ID = uuid.New()
	f.approvals[approval.ID] = approval
	return approval, nil
}

func (f *fakeDesignsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error) {
	approval, ok := f.approvals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *approval
	return &copied, nil
}

func (f *fakeDesignsRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.DesignApproval, error) {
	var out []models.DesignApproval
	for _, approval := range f.approvals {
		if approval.ConversationID == conversationID {
			out = append(out, *approval)
		}
	}
	return out, nil
}

func (f *fakeDesignsRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.DesignApprovalStatus, updates map[string]any) (int64, error) {
	approval, ok := f.approvals[id]
	if !ok {
		return 0, nil
	}
	allowed := false
	for _, status := range from {
		if approval.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, nil
	}
	if status, ok := updates["status"].(enums.DesignApprovalStatus); ok {
		approval.Status = status
	}
	if files, ok := updates["files"].(types.FileRefs); ok {
		approval.Files = files
	}
	if notes, ok := updates["seller_notes"].(string); ok {
		approval.SellerNotes = &notes
	}
	return 1, nil
}

func (f *fakeDesignsRepo) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conversation, nil
}

func (f *fakeDesignsRepo) FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quote, nil
}

type fakeCatalogRepo struct {
	products map[uuid.UUID]*models.Product
	variants map[uuid.UUID]*models.ProductVariant
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: map[uuid.UUID]*models.Product{},
		variants: map[uuid.UUID]*models.ProductVariant{},
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
	return nil, gorm.ErrRecordNotFound
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

func (f *fakeCatalogRepo) addVariant(sellerID uuid.UUID) (uuid.UUID, uuid.UUID) {
	productID, variantID := uuid.New(), uuid.New()
	f.products[productID] = &models.Product{ID: productID, SellerID: sellerID, Active: true}
	f.variants[variantID] = &models.ProductVariant{ID: variantID, ProductID: productID,
		Price: decimal.NewFromInt(10), Active: true}
	return productID, variantID
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

type designsFixture struct {
	svc     Service
	repo    *fakeDesignsRepo
	catalog *fakeCatalogRepo
	outbox  *fakeOutbox
}

func newDesignsFixture(t *testing.T) *designsFixture {
	t.Helper()
	fixture := &designsFixture{
		repo:    newFakeDesignsRepo(),
		catalog: newFakeCatalogRepo(),
		outbox:  &fakeOutbox{},
	}
	svc, err := NewService(fixture.repo, fixture.catalog, &fakeTxRunner{}, fixture.outbox)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fixture.svc = svc
	return fixture
}

func (f *designsFixture) seedConversation() *models.Conversation {
	conversation := &models.Conversation{ID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New()}
	f.repo.conversations[conversation.ID] = conversation
	return conversation
}

func (f *designsFixture) seedApproval(conversation *models.Conversation, status enums.DesignApprovalStatus) *models.DesignApproval {
	approval := &models.DesignApproval{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		BuyerID:        conversation.BuyerID,
		SellerID:       conversation.SellerID,
		Context:        enums.DesignContextQuote,
		Status:         status,
		Files:          designFiles(),
	}
	f.repo.approvals[approval.ID] = approval
	return approval
}

func designFiles() types.FileRefs {
	return types.FileRefs{{URL: "https://files.example/mockup-v1.png", Name: "mockup-v1.png"}}
}

func TestSubmitCreatesPendingApproval(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()

	approval, err := fixture.svc.Submit(context.Background(), SubmitInput{
		ConversationID: conversation.ID,
		Context:        enums.DesignContextQuote,
		Files:          designFiles(),
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if approval.Status != enums.DesignApprovalStatusPending {
		t.Fatalf("expected pending, got %s", approval.Status)
	}
	if len(fixture.outbox.events) != 1 || fixture.outbox.events[0].EventType != enums.EventDesignSubmitted {
		t.Fatalf("expected design submitted event")
	}
}

func TestSubmitRequiresFiles(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()

	_, err := fixture.svc.Submit(context.Background(), SubmitInput{
		ConversationID: conversation.ID,
		Context:        enums.DesignContextQuote,
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitQuoteContextRejectsVariant(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	variantID := uuid.New()

	_, err := fixture.svc.Submit(context.Background(), SubmitInput{
		ConversationID: conversation.ID,
		Context:        enums.DesignContextQuote,
		VariantID:      &variantID,
		Files:          designFiles(),
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitRejectsForeignQuote(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	other := fixture.seedConversation()
	quote := &models.Quote{ID: uuid.New(), ConversationID: other.ID}
	fixture.repo.quotes[quote.ID] = quote

	_, err := fixture.svc.Submit(context.Background(), SubmitInput{
		ConversationID: conversation.ID,
		Context:        enums.DesignContextQuote,
		QuoteID:        &quote.ID,
		Files:          designFiles(),
		Actor:          Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApproveBySeller(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	approval := fixture.seedApproval(conversation, enums.DesignApprovalStatusPending)

	err := fixture.svc.Approve(context.Background(), ReviewInput{
		DesignApprovalID: approval.ID,
		Actor:            Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if fixture.repo.approvals[approval.ID].Status != enums.DesignApprovalStatusApproved {
		t.Fatalf("expected approved")
	}
}

func TestReviewRejectsNonSeller(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	approval := fixture.seedApproval(conversation, enums.DesignApprovalStatusPending)

	err := fixture.svc.Approve(context.Background(), ReviewInput{
		DesignApprovalID: approval.ID,
		Actor:            Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestReviewRejectsTerminalStatus(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	approval := fixture.seedApproval(conversation, enums.DesignApprovalStatusApproved)

	err := fixture.svc.Reject(context.Background(), ReviewInput{
		DesignApprovalID: approval.ID,
		Actor:            Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestResubmitAfterChangesRequested(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	approval := fixture.seedApproval(conversation, enums.DesignApprovalStatusChangesRequested)

	newFiles := types.FileRefs{{URL: "https://files.example/mockup-v2.png", Name: "mockup-v2.png"}}
	err := fixture.svc.Resubmit(context.Background(), ResubmitInput{
		DesignApprovalID: approval.ID,
		Files:            newFiles,
		Actor:            Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}
	stored := fixture.repo.approvals[approval.ID]
	if stored.Status != enums.DesignApprovalStatusResubmitted {
		t.Fatalf("expected resubmitted, got %s", stored.Status)
	}
	if len(stored.Files) != 1 || stored.Files[0].Name != "mockup-v2.png" {
		t.Fatalf("expected files replaced")
	}
}

func TestResubmitOnlyFromChangesRequested(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	approval := fixture.seedApproval(conversation, enums.DesignApprovalStatusPending)

	err := fixture.svc.Resubmit(context.Background(), ResubmitInput{
		DesignApprovalID: approval.ID,
		Files:            designFiles(),
		Actor:            Actor{UserID: conversation.BuyerID, Role: enums.UserRoleBuyer},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCopyToTargetSameSeller(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	source := fixture.seedApproval(conversation, enums.DesignApprovalStatusApproved)
	productID, variantID := fixture.catalog.addVariant(conversation.SellerID)

	copied, err := fixture.svc.CopyToTarget(context.Background(), CopyInput{
		SourceApprovalID: source.ID,
		TargetProductID:  &productID,
		TargetVariantID:  &variantID,
		Actor:            Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if err != nil {
		t.Fatalf("CopyToTarget: %v", err)
	}
	if copied.Status != enums.DesignApprovalStatusApproved {
		t.Fatalf("copies stay approved, got %s", copied.Status)
	}
	if copied.CopiedFromID == nil || *copied.CopiedFromID != source.ID {
		t.Fatalf("expected provenance link to the source approval")
	}
}

func TestCopyToTargetBlocksCrossSeller(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	source := fixture.seedApproval(conversation, enums.DesignApprovalStatusApproved)
	productID, variantID := fixture.catalog.addVariant(uuid.New())

	_, err := fixture.svc.CopyToTarget(context.Background(), CopyInput{
		SourceApprovalID: source.ID,
		TargetProductID:  &productID,
		TargetVariantID:  &variantID,
		Actor:            Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeCrossSellerCopy {
		t.Fatalf("expected cross seller copy error, got %v", err)
	}
}

func TestCopyToTargetRequiresApprovedSource(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	source := fixture.seedApproval(conversation, enums.DesignApprovalStatusPending)
	productID, variantID := fixture.catalog.addVariant(conversation.SellerID)

	_, err := fixture.svc.CopyToTarget(context.Background(), CopyInput{
		SourceApprovalID: source.ID,
		TargetProductID:  &productID,
		TargetVariantID:  &variantID,
		Actor:            Actor{UserID: conversation.SellerID, Role: enums.UserRoleSeller},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetHidesForeignDesigns(t *testing.T) {
	fixture := newDesignsFixture(t)
	conversation := fixture.seedConversation()
	approval := fixture.seedApproval(conversation, enums.DesignApprovalStatusPending)

	if _, err := fixture.svc.Get(context.Background(), approval.ID, conversation.BuyerID); err != nil {
		t.Fatalf("buyer should see own design: %v", err)
	}
	_, err := fixture.svc.Get(context.Background(), approval.ID, uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
