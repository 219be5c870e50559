package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the buyer-seller thread that scopes quotes and design
// approvals. Exactly one of ProductID/ServiceID may seed the thread subject.
type Conversation struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID  uuid.UUID  `gorm:"column:seller_id;type:uuid;not null"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ServiceID *uuid.UUID `gorm:"column:service_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Involves reports whether the given user participates in the conversation.
func (c *Conversation) Involves(userID uuid.UUID) bool {
	return c.BuyerID == userID || c.SellerID == userID
}
