package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

// Order is one checkout line item for a product variant. TotalAmount always
// equals UnitPrice * Quantity; shipping cost is tracked separately.
type Order struct {
	ID                     uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutSessionID      uuid.UUID         `gorm:"column:checkout_session_id;type:uuid;not null"`
	BuyerID                uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID               uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	ProductID              uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	VariantID              uuid.UUID         `gorm:"column:variant_id;type:uuid;not null"`
	QuoteID                *uuid.UUID        `gorm:"column:quote_id;type:uuid"`
	DesignApprovalID       *uuid.UUID        `gorm:"column:design_approval_id;type:uuid"`
	Status                 enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	UnitPrice              decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity               int               `gorm:"column:quantity;not null"`
	TotalAmount            decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingCost           decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	WeightKG               decimal.Decimal   `gorm:"column:weight_kg;type:numeric(10,3);not null;default:0"`
	Destination            types.Address     `gorm:"column:destination;type:jsonb;serializer:json"`
	ReadyToShip            bool              `gorm:"column:ready_to_ship;not null;default:false"`
	ConsolidatedShipmentID *uuid.UUID        `gorm:"column:consolidated_shipment_id;type:uuid"`
	ReturnAttemptCount     int               `gorm:"column:return_attempt_count;not null;default:0"`
	PaidAt                 *time.Time        `gorm:"column:paid_at"`
	ShippedAt              *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt            *time.Time        `gorm:"column:delivered_at"`
	CancelledAt            *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt              time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
