package purchase

import (
	"context"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the read-only lookups the requirement validator needs.
// The validator never writes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	FindApprovedDesignForBuyer(ctx context.Context, buyerID, sellerID uuid.UUID, variantID, packageID *uuid.UUID) (*models.DesignApproval, error)
	CountActiveVariants(ctx context.Context, productID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchase-validation repository bound to the DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindApprovedDesignForBuyer(ctx context.Context, buyerID, sellerID uuid.UUID, variantID, packageID *uuid.UUID) (*models.DesignApproval, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_id = ? AND seller_id = ? AND status = ?",
			buyerID, sellerID, enums.DesignApprovalStatusApproved)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}
	if packageID != nil {
		query = query.Where("package_id = ?", *packageID)
	} else {
		query = query.Where("package_id IS NULL")
	}

	var approval models.DesignApproval
	if err := query.Order("created_at DESC").First(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *repository) CountActiveVariants(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND active = ?", productID, true).
		Count(&count).Error
	return count, err
}
