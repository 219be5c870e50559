package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UpdateProfileInput carries the mutable profile fields.
type UpdateProfileInput struct {
	DisplayName *string
	Phone       *string
}

// BankAccountInput describes a payout destination to register.
type BankAccountInput struct {
	BankName      string
	AccountNumber string
	AccountName   string
}

// Service exposes the profile and payout destination surface. Identity
// creation and credentials live in the external auth service.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error)
	AddBankAccount(ctx context.Context, userID uuid.UUID, input BankAccountInput) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error)
	RemoveBankAccount(ctx context.Context, userID, accountID uuid.UUID) error
}

type service struct {
	repo *Repository
}

// NewService builds the users service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	updates := map[string]any{}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name cannot be empty")
		}
		updates["display_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no profile fields to update")
	}
	if err := s.repo.UpdateProfile(ctx, userID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Get(ctx, userID)
}

func (s *service) AddBankAccount(ctx context.Context, userID uuid.UUID, input BankAccountInput) (*models.BankAccount, error) {
	bankName := strings.TrimSpace(input.BankName)
	accountNumber := strings.TrimSpace(input.AccountNumber)
	accountName := strings.TrimSpace(input.AccountName)
	if bankName == "" || accountNumber == "" || accountName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank name, account number and account name are required")
	}

	account, err := s.repo.CreateBankAccount(ctx, &models.BankAccount{
		UserID:        userID,
		BankName:      bankName,
		AccountNumber: accountNumber,
		AccountName:   accountName,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bank account")
	}
	return account, nil
}

func (s *service) ListBankAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error) {
	accounts, err := s.repo.ListBankAccounts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bank accounts")
	}
	return accounts, nil
}

func (s *service) RemoveBankAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	affected, err := s.repo.DeleteBankAccount(ctx, userID, accountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bank account")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bank account not found")
	}
	return nil
}
