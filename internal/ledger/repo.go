package ledger

import (
	"context"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for escrow transactions plus the guarded
// parent-entity flips that travel with a payment transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Transaction, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	MarkOrderPaid(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	MarkBookingPaid(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	FindBoostPurchase(ctx context.Context, id uuid.UUID) (*models.BoostPurchase, error)
	ActivateBoost(ctx context.Context, id uuid.UUID, activatedAt, expiresAt time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// ListBySession collects every transaction whose parent order or booking was
// created by the given checkout session.
func (r *repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id IN (?)",
			r.db.Model(&models.Order{}).Select("id").Where("checkout_session_id = ?", sessionID)).
		Or("booking_id IN (?)",
			r.db.Model(&models.Booking{}).Select("id").Where("checkout_session_id = ?", sessionID)).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID)
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var transactions []models.Transaction
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// UpdateGuarded applies updates only when the transaction still holds one of
// the expected statuses. Zero affected rows means a concurrent transition won.
func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.TransactionStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) MarkOrderPaid(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingPayment).
		Updates(map[string]any{"status": enums.OrderStatusPaid, "paid_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkBookingPaid(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, enums.BookingStatusPendingPayment).
		Updates(map[string]any{"status": enums.BookingStatusPaid, "paid_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) FindBoostPurchase(ctx context.Context, id uuid.UUID) (*models.BoostPurchase, error) {
	var boost models.BoostPurchase
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&boost).Error
	if err != nil {
		return nil, err
	}
	return &boost, nil
}

func (r *repository) ActivateBoost(ctx context.Context, id uuid.UUID, activatedAt, expiresAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BoostPurchase{}).
		Where("id = ? AND status = ?", id, enums.BoostStatusPendingPayment).
		Updates(map[string]any{
			"status":       enums.BoostStatusActive,
			"activated_at": activatedAt,
			"expires_at":   expiresAt,
		})
	return res.RowsAffected, res.Error
}
