package orders

import (
	"context"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for order reads and the cancellation
// transition, the only order write that does not belong to checkout,
// payments or shipping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	FindTransactionByOrder(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error)
	MarkTransactionRefundedFromPending(ctx context.Context, transactionID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return r.list(ctx, "buyer_id = ?", buyerID, params)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	return r.list(ctx, "seller_id = ?", sellerID, params)
}

func (r *repository) list(ctx context.Context, where string, id uuid.UUID, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Where(where, id)
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkCancelled flips the order to cancelled while it has not started
// shipping. Zero affected rows means a concurrent transition won.
func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ? AND ready_to_ship = ?",
			id, []enums.OrderStatus{enums.OrderStatusPendingPayment, enums.OrderStatusPaid}, false).
		Updates(map[string]any{"status": enums.OrderStatusCancelled, "cancelled_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) FindTransactionByOrder(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// MarkTransactionRefundedFromPending closes an unpaid transaction when its
// order is cancelled. Escrowed money goes through the ledger refund instead.
func (r *repository) MarkTransactionRefundedFromPending(ctx context.Context, transactionID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, enums.TransactionStatusPending).
		Updates(map[string]any{"status": enums.TransactionStatusRefunded, "refunded_at": at})
	return res.RowsAffected, res.Error
}
