package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// BoostPurchase is a seller-paid listing promotion. Boost money goes entirely
// to the platform, so its transaction carries a zero commission split.
type BoostPurchase struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Status       enums.BoostStatus `gorm:"column:status;type:boost_status;not null;default:'pending_payment'"`
	Amount       decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	DurationDays int               `gorm:"column:duration_days;not null"`
	ActivatedAt  *time.Time        `gorm:"column:activated_at"`
	ExpiresAt    *time.Time        `gorm:"column:expires_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
