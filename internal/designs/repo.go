package designs

import (
	"context"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for design approvals plus the narrow reads
// the state machine needs on neighbouring tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, approval *models.DesignApproval) (*models.DesignApproval, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.DesignApproval, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.DesignApprovalStatus, updates map[string]any) (int64, error)
	FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a design approvals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, approval *models.DesignApproval) (*models.DesignApproval, error) {
	if err := r.db.WithContext(ctx).Create(approval).Error; err != nil {
		return nil, err
	}
	return approval, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error) {
	var approval models.DesignApproval
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *repository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.DesignApproval, error) {
	var approvals []models.DesignApproval
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}

// UpdateStatus applies updates only when the row is still in one of the
// expected statuses. The returned row count is the concurrency guard: zero
// rows means a concurrent writer got there first.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.DesignApprovalStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DesignApproval{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repository) FindQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
