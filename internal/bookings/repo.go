package bookings

import (
	"context"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for service bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Booking, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Booking, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.BookingStatus, updates map[string]any) (int64, error)
	FindTransactionByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Transaction, error)
	MarkTransactionRefundedFromPending(ctx context.Context, transactionID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Booking, error) {
	return r.list(ctx, "buyer_id = ?", buyerID, params)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Booking, error) {
	return r.list(ctx, "seller_id = ?", sellerID, params)
}

func (r *repository) list(ctx context.Context, where string, id uuid.UUID, params pagination.Params) ([]models.Booking, error) {
	query := r.db.WithContext(ctx).Where(where, id)
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var bookings []models.Booking
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateGuarded applies updates only when the booking still holds one of the
// expected statuses. Zero affected rows means a concurrent transition won.
func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.BookingStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) FindTransactionByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) MarkTransactionRefundedFromPending(ctx context.Context, transactionID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, enums.TransactionStatusPending).
		Updates(map[string]any{"status": enums.TransactionStatusRefunded, "refunded_at": at})
	return res.RowsAffected, res.Error
}
