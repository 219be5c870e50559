package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is a listed offering fulfilled without shipping (made-to-order
// work, installation, consulting). Gating flags mirror Product.
type Service struct {
	ID                     uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID               uuid.UUID        `gorm:"column:seller_id;type:uuid;not null"`
	Title                  string           `gorm:"column:title;not null"`
	Description            *string          `gorm:"column:description"`
	RequiresQuote          bool             `gorm:"column:requires_quote;not null;default:false"`
	RequiresDesignApproval bool             `gorm:"column:requires_design_approval;not null;default:false"`
	Active                 bool             `gorm:"column:active;not null;default:true"`
	Packages               []ServicePackage `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ServicePackage is the bookable tier of a service.
type ServicePackage struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceID uuid.UUID       `gorm:"column:service_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Active    bool            `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
