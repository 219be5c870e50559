package returns

import (
	"context"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for return requests plus the narrow
// neighbouring reads and counters the workflow needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	CountActive(ctx context.Context, orderID, bookingID *uuid.UUID) (int64, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.ReturnStatus, updates map[string]any) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReturnRequest, error)
	ListByStatus(ctx context.Context, status enums.ReturnStatus, params pagination.Params) ([]models.ReturnRequest, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	IncrementOrderReturnAttempts(ctx context.Context, orderID uuid.UUID, below int) (int64, error)
	FindTransactionForSubject(ctx context.Context, orderID, bookingID *uuid.UUID) (*models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// CountActive counts non-terminal requests already open for the subject.
func (r *repository) CountActive(ctx context.Context, orderID, bookingID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("status NOT IN ?", []enums.ReturnStatus{
			enums.ReturnStatusCompleted,
			enums.ReturnStatusAdminRejected,
			enums.ReturnStatusCancelled,
		})
	if orderID != nil {
		query = query.Where("order_id = ?", *orderID)
	}
	if bookingID != nil {
		query = query.Where("booking_id = ?", *bookingID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateGuarded applies updates only when the request still holds one of the
// expected statuses. Zero affected rows means a concurrent transition won.
func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, from []enums.ReturnStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReturnRequest, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID)
	return r.list(query, params)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.ReturnStatus, params pagination.Params) ([]models.ReturnRequest, error) {
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return r.list(query, params)
}

func (r *repository) list(query *gorm.DB, params pagination.Params) ([]models.ReturnRequest, error) {
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var requests []models.ReturnRequest
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
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

// IncrementOrderReturnAttempts bumps the counter only while it is still under
// the cap, so two racing submissions cannot both pass the limit check.
func (r *repository) IncrementOrderReturnAttempts(ctx context.Context, orderID uuid.UUID, below int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND return_attempt_count < ?", orderID, below).
		Update("return_attempt_count", gorm.Expr("return_attempt_count + 1"))
	return res.RowsAffected, res.Error
}

func (r *repository) FindTransactionForSubject(ctx context.Context, orderID, bookingID *uuid.UUID) (*models.Transaction, error) {
	query := r.db.WithContext(ctx)
	if orderID != nil {
		query = query.Where("order_id = ?", *orderID)
	}
	if bookingID != nil {
		query = query.Where("booking_id = ?", *bookingID)
	}

	var transaction models.Transaction
	if err := query.First(&transaction).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}
