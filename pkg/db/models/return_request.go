package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

// ReturnRequest tracks a buyer's refund claim against a delivered order or a
// completed booking. SellerStatus records the seller's stance independently
// of the overall workflow status, which only an admin resolution closes.
type ReturnRequest struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	BookingID            *uuid.UUID               `gorm:"column:booking_id;type:uuid"`
	BuyerID              uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID             uuid.UUID                `gorm:"column:seller_id;type:uuid;not null"`
	Status               enums.ReturnStatus       `gorm:"column:status;type:return_status;not null;default:'requested'"`
	SellerStatus         enums.ReturnSellerStatus `gorm:"column:seller_status;type:return_seller_status;not null;default:'pending'"`
	Reason               string                   `gorm:"column:reason;not null"`
	Evidence             types.FileRefs           `gorm:"column:evidence;type:jsonb"`
	RequestedAmount      decimal.Decimal          `gorm:"column:requested_amount;type:numeric(12,2);not null"`
	SellerProposedAmount *decimal.Decimal         `gorm:"column:seller_proposed_amount;type:numeric(12,2)"`
	ApprovedAmount       *decimal.Decimal         `gorm:"column:approved_amount;type:numeric(12,2)"`
	SellerNotes          *string                  `gorm:"column:seller_notes"`
	AdminNotes           *string                  `gorm:"column:admin_notes"`
	ResolvedBy           *uuid.UUID               `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt           *time.Time               `gorm:"column:resolved_at"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// Subject returns the order or booking id the return targets.
func (r *ReturnRequest) Subject() uuid.UUID {
	if r.OrderID != nil {
		return *r.OrderID
	}
	if r.BookingID != nil {
		return *r.BookingID
	}
	return uuid.Nil
}
