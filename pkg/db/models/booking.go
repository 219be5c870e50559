package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// Booking is one checkout line item for a service package. Bookings carry no
// shipping and never participate in consolidation.
type Booking struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutSessionID uuid.UUID           `gorm:"column:checkout_session_id;type:uuid;not null"`
	BuyerID           uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID          uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	ServiceID         uuid.UUID           `gorm:"column:service_id;type:uuid;not null"`
	PackageID         uuid.UUID           `gorm:"column:package_id;type:uuid;not null"`
	QuoteID           *uuid.UUID          `gorm:"column:quote_id;type:uuid"`
	DesignApprovalID  *uuid.UUID          `gorm:"column:design_approval_id;type:uuid"`
	Status            enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending_payment'"`
	UnitPrice         decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity          int                 `gorm:"column:quantity;not null"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	StartedAt         *time.Time          `gorm:"column:started_at"`
	CompletedAt       *time.Time          `gorm:"column:completed_at"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
