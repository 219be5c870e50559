package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/types"
)

// DesignApproval is a buyer-submitted design awaiting seller sign-off.
// Context "product" ties the design to a listed variant/package; context
// "quote" ties it to custom specifications and must not carry either.
type DesignApproval struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID                  `gorm:"column:conversation_id;type:uuid;not null"`
	BuyerID        uuid.UUID                  `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID       uuid.UUID                  `gorm:"column:seller_id;type:uuid;not null"`
	Context        enums.DesignContext        `gorm:"column:context;type:design_context;not null"`
	ProductID      *uuid.UUID                 `gorm:"column:product_id;type:uuid"`
	VariantID      *uuid.UUID                 `gorm:"column:variant_id;type:uuid"`
	ServiceID      *uuid.UUID                 `gorm:"column:service_id;type:uuid"`
	PackageID      *uuid.UUID                 `gorm:"column:package_id;type:uuid"`
	QuoteID        *uuid.UUID                 `gorm:"column:quote_id;type:uuid"`
	Status         enums.DesignApprovalStatus `gorm:"column:status;type:design_approval_status;not null;default:'pending'"`
	Files          types.FileRefs             `gorm:"column:files;type:jsonb;not null"`
	SellerNotes    *string                    `gorm:"column:seller_notes"`
	CopiedFromID   *uuid.UUID                 `gorm:"column:copied_from_id;type:uuid"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// MatchesScope reports whether the approval targets the same variant/package.
func (d *DesignApproval) MatchesScope(variantID, packageID *uuid.UUID) bool {
	return uuidPtrEqual(d.VariantID, variantID) && uuidPtrEqual(d.PackageID, packageID)
}
