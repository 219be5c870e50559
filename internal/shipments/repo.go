package shipments

import (
	"context"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for consolidated shipments and the guarded
// order transitions that travel with them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrders(ctx context.Context, ids []uuid.UUID) ([]models.Order, error)
	FindSessionOrders(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error)
	MarkReadyToShip(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateShipment(ctx context.Context, shipment *models.ConsolidatedShipment) (*models.ConsolidatedShipment, error)
	FindShipment(ctx context.Context, id uuid.UUID) (*models.ConsolidatedShipment, error)
	ListShipments(ctx context.Context, params pagination.Params) ([]models.ConsolidatedShipment, error)
	MarkOrdersShipped(ctx context.Context, orderIDs []uuid.UUID, shipmentID uuid.UUID, at time.Time) (int64, error)
	MarkOrderDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error)
	RecordBooking(ctx context.Context, shipmentID uuid.UUID, awb, labelURL string) (int64, error)
	RecordCarrierError(ctx context.Context, shipmentID uuid.UUID, message string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shipments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrders(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindSessionOrders(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("checkout_session_id = ?", sessionID).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkReadyToShip flags a paid or processing order as packable. Zero affected
// rows means the order left that window concurrently.
func (r *repository) MarkReadyToShip(ctx context.Context, orderID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ? AND consolidated_shipment_id IS NULL",
			orderID, []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusProcessing}).
		Update("ready_to_ship", true)
	return res.RowsAffected, res.Error
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.ConsolidatedShipment) (*models.ConsolidatedShipment, error) {
	if err := r.db.WithContext(ctx).Create(shipment).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

func (r *repository) FindShipment(ctx context.Context, id uuid.UUID) (*models.ConsolidatedShipment, error) {
	var shipment models.ConsolidatedShipment
	err := r.db.WithContext(ctx).
		Preload("Orders").
		Where("id = ?", id).
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) ListShipments(ctx context.Context, params pagination.Params) ([]models.ConsolidatedShipment, error) {
	query := r.db.WithContext(ctx)
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var shipments []models.ConsolidatedShipment
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

// MarkOrdersShipped flips the orders to shipped and binds them to the
// shipment in one guarded statement. The caller compares the affected count
// against the input size to detect a concurrent writer.
func (r *repository) MarkOrdersShipped(ctx context.Context, orderIDs []uuid.UUID, shipmentID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ? AND status IN ? AND ready_to_ship = ? AND consolidated_shipment_id IS NULL",
			orderIDs, []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusProcessing}, true).
		Updates(map[string]any{
			"status":                   enums.OrderStatusShipped,
			"consolidated_shipment_id": shipmentID,
			"shipped_at":               at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkOrderDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusShipped).
		Updates(map[string]any{"status": enums.OrderStatusDelivered, "delivered_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) RecordBooking(ctx context.Context, shipmentID uuid.UUID, awb, labelURL string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ConsolidatedShipment{}).
		Where("id = ? AND status = ?", shipmentID, enums.ShipmentStatusPending).
		Updates(map[string]any{
			"status":        enums.ShipmentStatusBooked,
			"carrier_awb":   awb,
			"label_url":     labelURL,
			"carrier_error": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) RecordCarrierError(ctx context.Context, shipmentID uuid.UUID, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.ConsolidatedShipment{}).
		Where("id = ?", shipmentID).
		Update("carrier_error", message).Error
}
