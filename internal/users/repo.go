package users

import (
	"context"

	"github.com/craftlane/craftlane-backend/internal/repo"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes identity and payout destination reads and writes. It is
// a read-heavy repo, so it rides on the shared base instead of the
// WithTx-clone shape the state machines use.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the supplied column updates to the user row.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CreateBankAccount inserts a payout destination for the user.
func (r *Repository) CreateBankAccount(ctx context.Context, account *models.BankAccount) (*models.BankAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// ListBankAccounts returns the user's payout destinations, newest first.
func (r *Repository) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteBankAccount removes the user's payout destination and reports whether
// a row matched.
func (r *Repository) DeleteBankAccount(ctx context.Context, userID, accountID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Where("id = ? AND user_id = ?", accountID, userID).
		Delete(&models.BankAccount{})
	return res.RowsAffected, res.Error
}
