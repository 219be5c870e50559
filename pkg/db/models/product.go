package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a listed physical good. Purchase gating flags decide whether a
// buyer must hold an accepted quote and/or an approved design before checkout.
type Product struct {
	ID                     uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID               uuid.UUID        `gorm:"column:seller_id;type:uuid;not null"`
	Title                  string           `gorm:"column:title;not null"`
	Description            *string          `gorm:"column:description"`
	RequiresQuote          bool             `gorm:"column:requires_quote;not null;default:false"`
	RequiresDesignApproval bool             `gorm:"column:requires_design_approval;not null;default:false"`
	Active                 bool             `gorm:"column:active;not null;default:true"`
	Variants               []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is the purchasable unit of a product.
type ProductVariant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	WeightKG  decimal.Decimal `gorm:"column:weight_kg;type:numeric(10,3);not null;default:0"`
	Active    bool            `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
