package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

// CheckoutSession groups every Order and Booking created from one cart
// submission. Shipment consolidation uses it to gate sibling completeness.
type CheckoutSession struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	GatewayReference *string             `gorm:"column:gateway_reference;uniqueIndex"`
	ShippingCost     decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Destination      *types.Address      `gorm:"column:destination;type:jsonb;serializer:json"`
	Orders           []Order             `gorm:"foreignKey:CheckoutSessionID"`
	Bookings         []Booking           `gorm:"foreignKey:CheckoutSessionID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}
