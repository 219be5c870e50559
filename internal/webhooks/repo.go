package webhooks

import (
	"context"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository resolves gateway callbacks back to checkout sessions.
type Repository interface {
	FindSessionByReference(ctx context.Context, reference string) (*models.CheckoutSession, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a webhook repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindSessionByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("gateway_reference = ?", reference).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}
