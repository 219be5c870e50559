package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// User represents the canonical identity entity. Credentials and sessions are
// managed by the external auth service; the engine only needs identity + role.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string         `gorm:"type:text;not null;uniqueIndex"`
	DisplayName string         `gorm:"column:display_name;not null"`
	Role        enums.UserRole `gorm:"column:role;type:user_role;not null;default:'buyer'"`
	Phone       *string        `gorm:"column:phone"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
