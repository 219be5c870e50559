package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

// ConsolidatedShipment bundles ready-to-ship orders for one buyer and one
// destination into a single carrier booking. A failed carrier call leaves
// the shipment in pending with CarrierError set so it can be retried.
type ConsolidatedShipment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null"`
	Destination    types.Address        `gorm:"column:destination;type:jsonb;serializer:json;not null"`
	Status         enums.ShipmentStatus `gorm:"column:status;type:shipment_status;not null;default:'pending'"`
	TotalWeightKG  decimal.Decimal      `gorm:"column:total_weight_kg;type:numeric(10,3);not null"`
	ShippingCost   decimal.Decimal      `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	CarrierAWB     *string              `gorm:"column:carrier_awb"`
	LabelURL       *string              `gorm:"column:label_url"`
	CarrierError   *string              `gorm:"column:carrier_error"`
	OverrideReason *string              `gorm:"column:override_reason"`
	CreatedBy      uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	Orders         []Order              `gorm:"foreignKey:ConsolidatedShipmentID"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
