package quotes

import (
	"context"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for quotes plus the narrow neighbouring
// reads the negotiation state machine needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *models.Quote) (*models.Quote, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	FindOutstandingRequested(ctx context.Context, conversationID uuid.UUID, productID, variantID, serviceID, packageID *uuid.UUID) (*models.Quote, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Quote, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.QuoteStatus, updates map[string]any) (int64, error)
	FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindApprovedDesign(ctx context.Context, conversationID uuid.UUID, variantID, packageID *uuid.UUID) (*models.DesignApproval, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a quotes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		return nil, err
	}
	return quote, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func scopedQuery(query *gorm.DB, column string, id *uuid.UUID) *gorm.DB {
	if id != nil {
		return query.Where(column+" = ?", *id)
	}
	return query.Where(column + " IS NULL")
}

func (r *repository) FindOutstandingRequested(ctx context.Context, conversationID uuid.UUID, productID, variantID, serviceID, packageID *uuid.UUID) (*models.Quote, error) {
	query := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status = ?", conversationID, enums.QuoteStatusRequested)
	query = scopedQuery(query, "product_id", productID)
	query = scopedQuery(query, "variant_id", variantID)
	query = scopedQuery(query, "service_id", serviceID)
	query = scopedQuery(query, "package_id", packageID)

	var quote models.Quote
	if err := query.Order("created_at DESC").First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Quote, error) {
	var quotes []models.Quote
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

// UpdateGuarded applies updates only when the quote still holds one of the
// expected statuses. Zero affected rows means a concurrent transition won.
func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.QuoteStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repository) FindApprovedDesign(ctx context.Context, conversationID uuid.UUID, variantID, packageID *uuid.UUID) (*models.DesignApproval, error) {
	query := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status = ?", conversationID, enums.DesignApprovalStatusApproved)
	query = scopedQuery(query, "variant_id", variantID)
	query = scopedQuery(query, "package_id", packageID)

	var approval models.DesignApproval
	if err := query.Order("created_at DESC").First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

// ExpireDue flips sent quotes whose expiry has passed. Reads already project
// the expired status; this keeps the stored rows in agreement.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.QuoteStatusSent, now).
		Update("status", enums.QuoteStatusExpired)
	return res.RowsAffected, res.Error
}
