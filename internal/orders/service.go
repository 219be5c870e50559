package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/internal/ledger"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refunder interface {
	RefundTx(ctx context.Context, tx *gorm.DB, actor ledger.Actor, transactionID uuid.UUID) error
}

// Actor is the authenticated principal acting on orders.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service exposes order reads and buyer cancellation. Every other order
// transition belongs to checkout, the ledger or shipping.
type Service interface {
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error)
	ListMine(ctx context.Context, actor Actor, params pagination.Params) ([]models.Order, error)
	ListSales(ctx context.Context, actor Actor, params pagination.Params) ([]models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) error
}

type service struct {
	repo   Repository
	ledger refunder
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, ledgerSvc refunder, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, outbox: outboxSvc, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin &&
		order.BuyerID != actor.UserID && order.SellerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not involve user")
	}
	return order, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) ([]models.Order, error) {
	return s.repo.ListByBuyer(ctx, actor.UserID, params)
}

func (s *service) ListSales(ctx context.Context, actor Actor, params pagination.Params) ([]models.Order, error) {
	return s.repo.ListBySeller(ctx, actor.UserID, params)
}

// Cancel aborts an order the seller has not started shipping. Escrowed money
// is refunded through the ledger inside the same scope; an unpaid
// transaction is simply closed.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}

		affected, err := repo.MarkCancelled(ctx, order.ID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("order", order.Status.String(),
				enums.OrderStatusCancelled.String())
		}

		transaction, err := repo.FindTransactionByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInternal, "order has no transaction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order transaction")
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
		case enums.TransactionStatusEscrow:
			err := s.ledger.RefundTx(ctx, tx, ledger.Actor{UserID: actor.UserID, Role: actor.Role}, transaction.ID)
			if err != nil {
				return err
			}
		default:
			return pkgerrors.InvalidTransition("transaction", transaction.Status.String(),
				enums.TransactionStatusRefunded.String())
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.OrderLifecycleEvent{
				OrderID:  order.ID,
				BuyerID:  order.BuyerID,
				SellerID: order.SellerID,
				Status:   enums.OrderStatusCancelled,
			},
		})
	})
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
