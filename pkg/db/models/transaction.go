package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// Transaction is the escrow money record for exactly one Order, Booking or
// BoostPurchase. Amount = CommissionAmount + SellerPayout at all times.
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind             enums.TransactionKind   `gorm:"column:kind;type:transaction_kind;not null"`
	OrderID          *uuid.UUID              `gorm:"column:order_id;type:uuid;uniqueIndex"`
	BookingID        *uuid.UUID              `gorm:"column:booking_id;type:uuid;uniqueIndex"`
	BoostPurchaseID  *uuid.UUID              `gorm:"column:boost_purchase_id;type:uuid;uniqueIndex"`
	BuyerID          uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID         uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	CommissionRate   decimal.Decimal         `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	CommissionAmount decimal.Decimal         `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	SellerPayout     decimal.Decimal         `gorm:"column:seller_payout;type:numeric(12,2);not null"`
	Status           enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	BankAccountID    *uuid.UUID              `gorm:"column:bank_account_id;type:uuid"`
	PaymentSlipURL   *string                 `gorm:"column:payment_slip_url"`
	EscrowedAt       *time.Time              `gorm:"column:escrowed_at"`
	ReleasedAt       *time.Time              `gorm:"column:released_at"`
	RefundedAt       *time.Time              `gorm:"column:refunded_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
