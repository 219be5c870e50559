package returns

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
	"github.com/craftlane/craftlane-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxOrderAttempts caps how many return requests one order can accumulate.
const MaxOrderAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refunder interface {
	RefundTx(ctx context.Context, tx *gorm.DB, actor ledger.Actor, transactionID uuid.UUID) error
}

// Actor is the authenticated principal acting on a return request.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SubmitInput opens a return claim against one order or one booking.
type SubmitInput struct {
	OrderID         *uuid.UUID
	BookingID       *uuid.UUID
	Reason          string
	Evidence        types.FileRefs
	RequestedAmount decimal.Decimal
}

// SellerResponse records the seller's stance on an open request.
type SellerResponse struct {
	Approve        bool
	ProposedAmount *decimal.Decimal
	Notes          string
}

// AdminResolution is the admin's final ruling.
type AdminResolution struct {
	Approve        bool
	ApprovedAmount *decimal.Decimal
	Notes          string
}

// Service runs the buyer -> seller -> admin return pipeline. Only admin
// resolution closes a request, and only ProcessRefund completes one.
type Service interface {
	Submit(ctx context.Context, actor Actor, input SubmitInput) (*models.ReturnRequest, error)
	SellerRespond(ctx context.Context, actor Actor, requestID uuid.UUID, response SellerResponse) error
	AdminResolve(ctx context.Context, actor Actor, requestID uuid.UUID, resolution AdminResolution) error
	ProcessRefund(ctx context.Context, actor Actor, requestID uuid.UUID) error
	Cancel(ctx context.Context, actor Actor, requestID uuid.UUID) error
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.ReturnRequest, error)
	ListForUser(ctx context.Context, actor Actor, params pagination.Params) ([]models.ReturnRequest, error)
	ListByStatus(ctx context.Context, actor Actor, status enums.ReturnStatus, params pagination.Params) ([]models.ReturnRequest, error)
}

type service struct {
	repo   Repository
	ledger refunder
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the return workflow service.
func NewService(repo Repository, ledgerSvc refunder, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
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

func (s *service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*models.ReturnRequest, error) {
	if (input.OrderID == nil) == (input.BookingID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order id or booking id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	if !input.RequestedAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested amount must be positive")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sellerID, maxRefund, err := s.checkSubject(ctx, repo, actor, input)
		if err != nil {
			return err
		}
		if input.RequestedAmount.GreaterThan(maxRefund) {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested amount exceeds the amount paid")
		}

		active, err := repo.CountActive(ctx, input.OrderID, input.BookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active returns")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "a return request is already open")
		}

		if input.OrderID != nil {
			affected, err := repo.IncrementOrderReturnAttempts(ctx, *input.OrderID, MaxOrderAttempts)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count return attempt")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeRateLimit, "return attempt limit reached for this order")
			}
		}

		request, err = repo.Create(ctx, &models.ReturnRequest{
			OrderID:         input.OrderID,
			BookingID:       input.BookingID,
			BuyerID:         actor.UserID,
			SellerID:        sellerID,
			Status:          enums.ReturnStatusRequested,
			SellerStatus:    enums.ReturnSellerStatusPending,
			Reason:          input.Reason,
			Evidence:        input.Evidence,
			RequestedAmount: input.RequestedAmount,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnRequested,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.ReturnLifecycleEvent{
				ReturnRequestID: request.ID,
				BuyerID:         request.BuyerID,
				SellerID:        request.SellerID,
				Status:          request.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// checkSubject verifies ownership and that the parent entity is in a state
// that admits a return. It reports the seller and the paid ceiling.
func (s *service) checkSubject(ctx context.Context, repo Repository, actor Actor, input SubmitInput) (uuid.UUID, decimal.Decimal, error) {
	if input.OrderID != nil {
		order, err := repo.FindOrder(ctx, *input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != actor.UserID {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
		if order.Status != enums.OrderStatusDelivered {
			return uuid.Nil, decimal.Zero, pkgerrors.InvalidTransition("order", order.Status.String(),
				enums.OrderStatusDelivered.String())
		}
		if order.ReturnAttemptCount >= MaxOrderAttempts {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeRateLimit,
				"return attempt limit reached for this order")
		}
		return order.SellerID, order.TotalAmount.Add(order.ShippingCost), nil
	}

	booking, err := repo.FindBooking(ctx, *input.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.BuyerID != actor.UserID {
		return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to buyer")
	}
	if !booking.Status.AllowsReturn() {
		return uuid.Nil, decimal.Zero, pkgerrors.InvalidTransition("booking", booking.Status.String(),
			enums.BookingStatusPaid.String(), enums.BookingStatusOngoing.String(), enums.BookingStatusCompleted.String())
	}
	return booking.SellerID, booking.TotalAmount, nil
}

// SellerRespond records the seller's recommendation. The overall status moves
// to seller_approved or seller_rejected; only an admin closes the request.
func (s *service) SellerRespond(ctx context.Context, actor Actor, requestID uuid.UUID, response SellerResponse) error {
	request, err := s.load(ctx, s.repo, requestID)
	if err != nil {
		return err
	}
	if request.SellerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "return request does not belong to seller")
	}
	if response.Approve && response.ProposedAmount != nil {
		if !response.ProposedAmount.IsPositive() || response.ProposedAmount.GreaterThan(request.RequestedAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				"proposed amount must be positive and within the requested amount")
		}
	}

	next := enums.ReturnStatusSellerRejected
	sellerStatus := enums.ReturnSellerStatusRejected
	if response.Approve {
		next = enums.ReturnStatusSellerApproved
		sellerStatus = enums.ReturnSellerStatusApproved
	}
	updates := map[string]any{
		"status":        next,
		"seller_status": sellerStatus,
	}
	if response.ProposedAmount != nil {
		updates["seller_proposed_amount"] = *response.ProposedAmount
	}
	if response.Notes != "" {
		updates["seller_notes"] = response.Notes
	}

	affected, err := s.repo.UpdateGuarded(ctx, request.ID,
		[]enums.ReturnStatus{enums.ReturnStatusRequested}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record seller response")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("return request", request.Status.String(),
			enums.ReturnStatusSellerApproved.String(), enums.ReturnStatusSellerRejected.String())
	}
	return nil
}

func (s *service) AdminResolve(ctx context.Context, actor Actor, requestID uuid.UUID, resolution AdminResolution) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins resolve returns")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := s.load(ctx, repo, requestID)
		if err != nil {
			return err
		}

		next := enums.ReturnStatusAdminRejected
		updates := map[string]any{
			"resolved_by": actor.UserID,
			"resolved_at": s.now(),
		}
		if resolution.Approve {
			if resolution.ApprovedAmount == nil || !resolution.ApprovedAmount.IsPositive() {
				return pkgerrors.New(pkgerrors.CodeValidation, "approval requires a positive refund amount")
			}
			if resolution.ApprovedAmount.GreaterThan(request.RequestedAmount) {
				return pkgerrors.New(pkgerrors.CodeValidation, "approved amount exceeds the requested amount")
			}
			next = enums.ReturnStatusAdminApproved
			updates["approved_amount"] = *resolution.ApprovedAmount
		}
		updates["status"] = next
		if resolution.Notes != "" {
			updates["admin_notes"] = resolution.Notes
		}

		affected, err := repo.UpdateGuarded(ctx, request.ID, []enums.ReturnStatus{
			enums.ReturnStatusSellerApproved,
			enums.ReturnStatusSellerRejected,
		}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve return")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("return request", request.Status.String(),
				enums.ReturnStatusAdminApproved.String(), enums.ReturnStatusAdminRejected.String())
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnResolved,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.ReturnLifecycleEvent{
				ReturnRequestID: request.ID,
				BuyerID:         request.BuyerID,
				SellerID:        request.SellerID,
				Status:          next,
				ApprovedAmount:  resolution.ApprovedAmount,
			},
		})
	})
}

// ProcessRefund executes an approved resolution: the escrow transaction is
// refunded and the request reaches completed, its only terminal success
// state. Refund and completion share one scope.
func (s *service) ProcessRefund(ctx context.Context, actor Actor, requestID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins process refunds")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := s.load(ctx, repo, requestID)
		if err != nil {
			return err
		}
		affected, err := repo.UpdateGuarded(ctx, request.ID,
			[]enums.ReturnStatus{enums.ReturnStatusAdminApproved},
			map[string]any{"status": enums.ReturnStatusRefunded})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start refund")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("return request", request.Status.String(),
				enums.ReturnStatusRefunded.String())
		}

		transaction, err := repo.FindTransactionForSubject(ctx, request.OrderID, request.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found for return subject")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		err = s.ledger.RefundTx(ctx, tx, ledger.Actor{UserID: actor.UserID, Role: actor.Role}, transaction.ID)
		if err != nil {
			return err
		}

		affected, err = repo.UpdateGuarded(ctx, request.ID,
			[]enums.ReturnStatus{enums.ReturnStatusRefunded},
			map[string]any{"status": enums.ReturnStatusCompleted})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete return")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeInternal, "return left refunded state unexpectedly")
		}
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, actor Actor, requestID uuid.UUID) error {
	request, err := s.load(ctx, s.repo, requestID)
	if err != nil {
		return err
	}
	if request.BuyerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "return request does not belong to buyer")
	}
	affected, err := s.repo.UpdateGuarded(ctx, request.ID, []enums.ReturnStatus{
		enums.ReturnStatusRequested,
		enums.ReturnStatusSellerApproved,
		enums.ReturnStatusSellerRejected,
		enums.ReturnStatusAdminApproved,
	}, map[string]any{"status": enums.ReturnStatusCancelled})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel return")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("return request", request.Status.String(),
			enums.ReturnStatusCancelled.String())
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin &&
		request.BuyerID != actor.UserID && request.SellerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request does not involve user")
	}
	return request, nil
}

func (s *service) ListForUser(ctx context.Context, actor Actor, params pagination.Params) ([]models.ReturnRequest, error) {
	return s.repo.ListForUser(ctx, actor.UserID, params)
}

func (s *service) ListByStatus(ctx context.Context, actor Actor, status enums.ReturnStatus, params pagination.Params) ([]models.ReturnRequest, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins list all returns")
	}
	return s.repo.ListByStatus(ctx, status, params)
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	return request, nil
}
