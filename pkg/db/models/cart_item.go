package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one pending line in a buyer's cart: a product variant or a
// service package, optionally bound to an accepted quote. UnitPrice is a
// snapshot for display only; checkout re-reads the authoritative price.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID  uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	ProductID *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ServiceID *uuid.UUID      `gorm:"column:service_id;type:uuid"`
	PackageID *uuid.UUID      `gorm:"column:package_id;type:uuid"`
	QuoteID   *uuid.UUID      `gorm:"column:quote_id;type:uuid"`
	Quantity  int             `gorm:"column:quantity;not null;default:1"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
