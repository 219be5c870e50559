package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor is the authenticated principal acting on the ledger.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service is the escrow ledger. Transactions move pending -> escrow ->
// released or refunded; every transition also maintains the parent entity
// (order paid, booking paid, boost activated) inside the same scope.
type Service interface {
	ConfirmPayment(ctx context.Context, actor Actor, transactionID uuid.UUID) error
	ConfirmSessionPayments(ctx context.Context, sessionID uuid.UUID) error
	Release(ctx context.Context, actor Actor, transactionID uuid.UUID) error
	ReleaseAllForSession(ctx context.Context, actor Actor, sessionID uuid.UUID) error
	RefundTx(ctx context.Context, tx *gorm.DB, actor Actor, transactionID uuid.UUID) error
	AttachPaymentSlip(ctx context.Context, actor Actor, transactionID uuid.UUID, slipURL string) error
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Transaction, error)
	ListForUser(ctx context.Context, actor Actor, params pagination.Params) ([]models.Transaction, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the escrow ledger service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, now: time.Now}, nil
}

// ConfirmPayment moves one transaction into escrow. Admins use it for the
// bank transfer path after verifying the uploaded slip.
func (s *service) ConfirmPayment(ctx context.Context, actor Actor, transactionID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins confirm payments")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transaction, err := s.load(ctx, repo, transactionID)
		if err != nil {
			return err
		}
		_, err = s.confirmOne(ctx, tx, repo, transaction, &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()})
		return err
	})
}

// ConfirmSessionPayments escrows every transaction created by one checkout
// session. The gateway webhook calls this; repeated deliveries find the
// transactions already in escrow and change nothing.
func (s *service) ConfirmSessionPayments(ctx context.Context, sessionID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transactions, err := repo.ListBySession(ctx, sessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list session transactions")
		}
		if len(transactions) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no transactions for checkout session")
		}
		for i := range transactions {
			if _, err := s.confirmOne(ctx, tx, repo, &transactions[i], nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// confirmOne performs one pending -> escrow transition. An already-escrowed
// transaction is a no-op so webhook replays stay silent; any other status is
// a real conflict.
func (s *service) confirmOne(ctx context.Context, tx *gorm.DB, repo Repository, transaction *models.Transaction, actorRef *outbox.ActorRef) (bool, error) {
	now := s.now()
	affected, err := repo.UpdateGuarded(ctx, transaction.ID,
		[]enums.TransactionStatus{enums.TransactionStatusPending},
		map[string]any{"status": enums.TransactionStatusEscrow, "escrowed_at": now})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "escrow transaction")
	}
	if affected == 0 {
		if transaction.Status == enums.TransactionStatusEscrow {
			return false, nil
		}
		current, err := s.load(ctx, repo, transaction.ID)
		if err != nil {
			return false, err
		}
		if current.Status == enums.TransactionStatusEscrow {
			return false, nil
		}
		return false, pkgerrors.InvalidTransition("transaction", current.Status.String(),
			enums.TransactionStatusEscrow.String())
	}

	if err := s.markParentPaid(ctx, tx, repo, transaction, now, actorRef); err != nil {
		return false, err
	}

	transaction.Status = enums.TransactionStatusEscrow
	return true, s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentEscrowed,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   transaction.ID,
		Version:       1,
		Actor:         actorRef,
		Data:          paymentPayload(transaction),
	})
}

func (s *service) markParentPaid(ctx context.Context, tx *gorm.DB, repo Repository, transaction *models.Transaction, now time.Time, actorRef *outbox.ActorRef) error {
	switch transaction.Kind {
	case enums.TransactionKindOrder:
		if _, err := repo.MarkOrderPaid(ctx, *transaction.OrderID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   *transaction.OrderID,
			Version:       1,
			Actor:         actorRef,
			Data: payloads.OrderLifecycleEvent{
				OrderID:  *transaction.OrderID,
				BuyerID:  transaction.BuyerID,
				SellerID: transaction.SellerID,
				Status:   enums.OrderStatusPaid,
			},
		})
	case enums.TransactionKindBooking:
		if _, err := repo.MarkBookingPaid(ctx, *transaction.BookingID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark booking paid")
		}
		return nil
	case enums.TransactionKindBoost:
		return s.activateBoost(ctx, tx, repo, transaction, now, actorRef)
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown transaction kind")
	}
}

// activateBoost flips the boost to active and stamps its expiry window. It
// runs inside the same scope as the escrow transition so a boost can never be
// paid-but-inactive.
func (s *service) activateBoost(ctx context.Context, tx *gorm.DB, repo Repository, transaction *models.Transaction, now time.Time, actorRef *outbox.ActorRef) error {
	boost, err := repo.FindBoostPurchase(ctx, *transaction.BoostPurchaseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load boost purchase")
	}
	expiresAt := now.AddDate(0, 0, boost.DurationDays)
	affected, err := repo.ActivateBoost(ctx, boost.ID, now, expiresAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate boost")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("boost purchase", boost.Status.String(),
			enums.BoostStatusActive.String())
	}
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBoostActivated,
		AggregateType: enums.AggregateBoostPurchase,
		AggregateID:   boost.ID,
		Version:       1,
		Actor:         actorRef,
		Data: payloads.BoostActivatedEvent{
			BoostPurchaseID: boost.ID,
			SellerID:        boost.SellerID,
			ProductID:       boost.ProductID,
			ExpiresAt:       expiresAt,
		},
	})
}

// Release pays the seller out of escrow. The parent order must already be
// shipped or delivered; the parent booking must be completed.
func (s *service) Release(ctx context.Context, actor Actor, transactionID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins release payments")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transaction, err := s.load(ctx, repo, transactionID)
		if err != nil {
			return err
		}
		return s.releaseOne(ctx, tx, repo, transaction, actor)
	})
}

func (s *service) releaseOne(ctx context.Context, tx *gorm.DB, repo Repository, transaction *models.Transaction, actor Actor) error {
	if err := s.checkReleasable(ctx, repo, transaction); err != nil {
		return err
	}
	affected, err := repo.UpdateGuarded(ctx, transaction.ID,
		[]enums.TransactionStatus{enums.TransactionStatusEscrow},
		map[string]any{"status": enums.TransactionStatusReleased, "released_at": s.now()})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release transaction")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("transaction", transaction.Status.String(),
			enums.TransactionStatusReleased.String())
	}
	transaction.Status = enums.TransactionStatusReleased
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentReleased,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   transaction.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
		Data:          paymentPayload(transaction),
	})
}

func (s *service) checkReleasable(ctx context.Context, repo Repository, transaction *models.Transaction) error {
	switch transaction.Kind {
	case enums.TransactionKindOrder:
		order, err := repo.FindOrder(ctx, *transaction.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusShipped && order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"order must be shipped or delivered before releasing payment")
		}
		return nil
	case enums.TransactionKindBooking:
		booking, err := repo.FindBooking(ctx, *transaction.BookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"booking must be completed before releasing payment")
		}
		return nil
	case enums.TransactionKindBoost:
		return pkgerrors.New(pkgerrors.CodeValidation, "boost payments are retained by the platform")
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, "unknown transaction kind")
	}
}

// ReleaseAllForSession releases every escrowed transaction of a checkout
// session, skipping the rest. Each release stands alone, so one failure does
// not roll back the others; the combined error reports what was skipped.
func (s *service) ReleaseAllForSession(ctx context.Context, actor Actor, sessionID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins release payments")
	}
	transactions, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list session transactions")
	}
	var combined error
	for i := range transactions {
		transaction := transactions[i]
		if transaction.Status != enums.TransactionStatusEscrow {
			continue
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.releaseOne(ctx, tx, s.repo.WithTx(tx), &transaction, actor)
		})
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("transaction %s: %w", transaction.ID, err))
		}
	}
	return combined
}

// RefundTx moves an escrowed transaction to refunded inside the caller's
// transaction and reverses the recorded commission. Return resolution and
// cancellation are its only callers.
//
// Amount is kept as the historical charge, so amount = payout + commission
// holds only while a transaction is pending or escrowed. On refunded rows both
// legs are zeroed: nothing was paid out and no commission was earned.
func (s *service) RefundTx(ctx context.Context, tx *gorm.DB, actor Actor, transactionID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "refund requires an enclosing transaction")
	}
	repo := s.repo.WithTx(tx)
	transaction, err := s.load(ctx, repo, transactionID)
	if err != nil {
		return err
	}
	affected, err := repo.UpdateGuarded(ctx, transaction.ID,
		[]enums.TransactionStatus{enums.TransactionStatusEscrow},
		map[string]any{
			"status":            enums.TransactionStatusRefunded,
			"refunded_at":       s.now(),
			"commission_amount": decimal.Zero,
			"seller_payout":     decimal.Zero,
		})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund transaction")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("transaction", transaction.Status.String(),
			enums.TransactionStatusRefunded.String())
	}
	transaction.Status = enums.TransactionStatusRefunded
	transaction.SellerPayout = decimal.Zero
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentRefunded,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   transaction.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
		Data:          paymentPayload(transaction),
	})
}

// AttachPaymentSlip stores the buyer's bank transfer proof on a pending
// transaction for later admin confirmation.
func (s *service) AttachPaymentSlip(ctx context.Context, actor Actor, transactionID uuid.UUID, slipURL string) error {
	if slipURL == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment slip url required")
	}
	transaction, err := s.load(ctx, s.repo, transactionID)
	if err != nil {
		return err
	}
	if transaction.BuyerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "transaction does not belong to buyer")
	}
	affected, err := s.repo.UpdateGuarded(ctx, transaction.ID,
		[]enums.TransactionStatus{enums.TransactionStatusPending},
		map[string]any{"payment_slip_url": slipURL})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment slip")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("transaction", transaction.Status.String(),
			enums.TransactionStatusPending.String())
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.Transaction, error) {
	transaction, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin &&
		transaction.BuyerID != actor.UserID && transaction.SellerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction does not involve user")
	}
	return transaction, nil
}

func (s *service) ListForUser(ctx context.Context, actor Actor, params pagination.Params) ([]models.Transaction, error) {
	return s.repo.ListForUser(ctx, actor.UserID, params)
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Transaction, error) {
	transaction, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return transaction, nil
}

func paymentPayload(transaction *models.Transaction) payloads.PaymentLifecycleEvent {
	return payloads.PaymentLifecycleEvent{
		TransactionID: transaction.ID,
		BuyerID:       transaction.BuyerID,
		SellerID:      transaction.SellerID,
		Kind:          transaction.Kind,
		Status:        transaction.Status,
		Amount:        transaction.Amount,
		SellerPayout:  transaction.SellerPayout,
	}
}
