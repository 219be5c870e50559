package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// Quote is a single custom-price negotiation scoped to one conversation and
// one item configuration. Exactly one of ProductID/ServiceID is set; a nil
// VariantID/PackageID marks a fully custom scope. QuotedPrice stays nil until
// the seller sends the quote.
type Quote struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID   uuid.UUID         `gorm:"column:conversation_id;type:uuid;not null"`
	BuyerID          uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID         uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	ProductID        *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	VariantID        *uuid.UUID        `gorm:"column:variant_id;type:uuid"`
	ServiceID        *uuid.UUID        `gorm:"column:service_id;type:uuid"`
	PackageID        *uuid.UUID        `gorm:"column:package_id;type:uuid"`
	Status           enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'requested'"`
	QuotedPrice      *decimal.Decimal  `gorm:"column:quoted_price;type:numeric(12,2)"`
	Quantity         int               `gorm:"column:quantity;not null;default:1"`
	ExpiresAt        *time.Time        `gorm:"column:expires_at"`
	DesignApprovalID *uuid.UUID        `gorm:"column:design_approval_id;type:uuid"`
	Notes            *string           `gorm:"column:notes"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports the read-time expiry rule: an expired-but-unprocessed
// quote counts as expired the moment anyone reads or acts on it.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

// MatchesScope reports whether the quote targets the same item configuration.
func (q *Quote) MatchesScope(productID, variantID, serviceID, packageID *uuid.UUID) bool {
	return uuidPtrEqual(q.ProductID, productID) &&
		uuidPtrEqual(q.VariantID, variantID) &&
		uuidPtrEqual(q.ServiceID, serviceID) &&
		uuidPtrEqual(q.PackageID, packageID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
