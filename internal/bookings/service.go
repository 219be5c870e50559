package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/internal/ledger"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type refunder interface {
	RefundTx(ctx context.Context, tx *gorm.DB, actor ledger.Actor, transactionID uuid.UUID) error
}

// Actor is the authenticated principal acting on bookings.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service drives the service booking lifecycle after checkout: the seller
// starts and completes the work, the buyer may cancel before it starts.
type Service interface {
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Booking, error)
	ListMine(ctx context.Context, actor Actor, params pagination.Params) ([]models.Booking, error)
	ListSales(ctx context.Context, actor Actor, params pagination.Params) ([]models.Booking, error)
	Start(ctx context.Context, actor Actor, bookingID uuid.UUID) error
	Complete(ctx context.Context, actor Actor, bookingID uuid.UUID) error
	Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) error
}

type service struct {
	repo   Repository
	ledger refunder
	tx     txRunner
	now    func() time.Time
}

// NewService builds the bookings service.
func NewService(repo Repository, ledgerSvc refunder, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin &&
		booking.BuyerID != actor.UserID && booking.SellerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not involve user")
	}
	return booking, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) ([]models.Booking, error) {
	return s.repo.ListByBuyer(ctx, actor.UserID, params)
}

func (s *service) ListSales(ctx context.Context, actor Actor, params pagination.Params) ([]models.Booking, error) {
	return s.repo.ListBySeller(ctx, actor.UserID, params)
}

func (s *service) Start(ctx context.Context, actor Actor, bookingID uuid.UUID) error {
	return s.sellerTransition(ctx, actor, bookingID,
		[]enums.BookingStatus{enums.BookingStatusPaid},
		map[string]any{"status": enums.BookingStatusOngoing, "started_at": s.now()},
		enums.BookingStatusOngoing)
}

func (s *service) Complete(ctx context.Context, actor Actor, bookingID uuid.UUID) error {
	return s.sellerTransition(ctx, actor, bookingID,
		[]enums.BookingStatus{enums.BookingStatusOngoing},
		map[string]any{"status": enums.BookingStatusCompleted, "completed_at": s.now()},
		enums.BookingStatusCompleted)
}

func (s *service) sellerTransition(ctx context.Context, actor Actor, bookingID uuid.UUID, from []enums.BookingStatus, updates map[string]any, target enums.BookingStatus) error {
	booking, err := s.load(ctx, s.repo, bookingID)
	if err != nil {
		return err
	}
	if booking.SellerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to seller")
	}
	affected, err := s.repo.UpdateGuarded(ctx, booking.ID, from, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("booking", booking.Status.String(), target.String())
	}
	return nil
}

// Cancel aborts a booking the seller has not started. Escrowed money is
// refunded through the ledger inside the same scope.
func (s *service) Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := s.load(ctx, repo, bookingID)
		if err != nil {
			return err
		}
		if booking.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to buyer")
		}

		affected, err := repo.UpdateGuarded(ctx, booking.ID,
			[]enums.BookingStatus{enums.BookingStatusPendingPayment, enums.BookingStatusPaid},
			map[string]any{"status": enums.BookingStatusCancelled, "cancelled_at": s.now()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel booking")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("booking", booking.Status.String(),
				enums.BookingStatusCancelled.String())
		}

		transaction, err := repo.FindTransactionByBooking(ctx, booking.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInternal, "booking has no transaction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking transaction")
		}
		switch transaction.Status {
		case enums.TransactionStatusPending:
			closed, err := repo.MarkTransactionRefundedFromPending(ctx, transaction.ID, s.now())
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close pending transaction")
			}
			if closed == 0 {
				return pkgerrors.InvalidTransition("transaction", transaction.Status.String(),
					enums.TransactionStatusRefunded.String())
			}
			return nil
		case enums.TransactionStatusEscrow:
			return s.ledger.RefundTx(ctx, tx, ledger.Actor{UserID: actor.UserID, Role: actor.Role}, transaction.ID)
		default:
			return pkgerrors.InvalidTransition("transaction", transaction.Status.String(),
				enums.TransactionStatusRefunded.String())
		}
	})
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Booking, error) {
	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}
