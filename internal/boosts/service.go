package boosts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Boost duration bounds in days.
const (
	MinDurationDays = 1
	MaxDurationDays = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor is the authenticated principal acting on boosts.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// PurchaseInput starts a boost purchase for one of the seller's products.
type PurchaseInput struct {
	ProductID    uuid.UUID
	Amount       decimal.Decimal
	DurationDays int
}

// Service sells listing boosts. A purchase creates the boost in
// pending_payment plus its pending platform transaction; activation happens
// when the ledger escrows that transaction.
type Service interface {
	Purchase(ctx context.Context, actor Actor, input PurchaseInput) (*models.BoostPurchase, error)
	Cancel(ctx context.Context, actor Actor, boostID uuid.UUID) error
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.BoostPurchase, error)
	ListMine(ctx context.Context, actor Actor, params pagination.Params) ([]models.BoostPurchase, error)
	ExpireDue(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds the boost purchase service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("boosts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) Purchase(ctx context.Context, actor Actor, input PurchaseInput) (*models.BoostPurchase, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "boost amount must be positive")
	}
	if input.DurationDays < MinDurationDays || input.DurationDays > MaxDurationDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("boost duration must be between %d and %d days", MinDurationDays, MaxDurationDays))
	}

	var boost *models.BoostPurchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.SellerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to seller")
		}

		open, err := repo.CountActiveForProduct(ctx, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open boosts")
		}
		if open > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already has an open boost")
		}

		boost, err = repo.Create(ctx, &models.BoostPurchase{
			ID:           uuid.New(),
			SellerID:     actor.UserID,
			ProductID:    product.ID,
			Status:       enums.BoostStatusPendingPayment,
			Amount:       input.Amount,
			DurationDays: input.DurationDays,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create boost purchase")
		}

		// Boost revenue belongs to the platform, so the commission split is
		// degenerate: the whole amount sits in seller_payout but is never
		// released to a bank account.
		boostID := boost.ID
		err = repo.CreateTransaction(ctx, &models.Transaction{
			Kind:             enums.TransactionKindBoost,
			BoostPurchaseID:  &boostID,
			BuyerID:          actor.UserID,
			SellerID:         actor.UserID,
			Amount:           input.Amount,
			CommissionRate:   decimal.Zero,
			CommissionAmount: decimal.Zero,
			SellerPayout:     input.Amount,
			Status:           enums.TransactionStatusPending,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create boost transaction")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return boost, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, boostID uuid.UUID) error {
	boost, err := s.load(ctx, boostID)
	if err != nil {
		return err
	}
	if boost.SellerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "boost does not belong to seller")
	}
	affected, err := s.repo.UpdateGuarded(ctx, boost.ID,
		[]enums.BoostStatus{enums.BoostStatusPendingPayment},
		map[string]any{"status": enums.BoostStatusCancelled})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel boost")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("boost purchase", boost.Status.String(),
			enums.BoostStatusCancelled.String())
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.BoostPurchase, error) {
	boost, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin && boost.SellerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "boost does not belong to seller")
	}
	return boost, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) ([]models.BoostPurchase, error) {
	return s.repo.ListBySeller(ctx, actor.UserID, params)
}

// ExpireDue lapses every active boost past its window. The cron worker calls
// this on a schedule.
func (s *service) ExpireDue(ctx context.Context) (int64, error) {
	return s.repo.ExpireDue(ctx, s.now())
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.BoostPurchase, error) {
	boost, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "boost purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load boost purchase")
	}
	return boost, nil
}
