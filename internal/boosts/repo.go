package boosts

import (
	"context"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for boost purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, boost *models.BoostPurchase) (*models.BoostPurchase, error)
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BoostPurchase, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CountActiveForProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.BoostPurchase, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.BoostStatus, updates map[string]any) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a boosts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, boost *models.BoostPurchase) (*models.BoostPurchase, error) {
	if err := r.db.WithContext(ctx).Create(boost).Error; err != nil {
		return nil, err
	}
	return boost, nil
}

func (r *repository) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BoostPurchase, error) {
	var boost models.BoostPurchase
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&boost).Error
	if err != nil {
		return nil, err
	}
	return &boost, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) CountActiveForProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BoostPurchase{}).
		Where("product_id = ? AND status IN ?", productID,
			[]enums.BoostStatus{enums.BoostStatusPendingPayment, enums.BoostStatusActive}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.BoostPurchase, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var boosts []models.BoostPurchase
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&boosts).Error
	if err != nil {
		return nil, err
	}
	return boosts, nil
}

// UpdateGuarded applies updates only when the boost still holds one of the
// expected statuses. Zero affected rows means a concurrent transition won.
func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.BoostStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BoostPurchase{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ExpireDue flips every active boost whose window has lapsed.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BoostPurchase{}).
		Where("status = ? AND expires_at <= ?", enums.BoostStatusActive, now).
		Update("status", enums.BoostStatusExpired)
	return res.RowsAffected, res.Error
}
