package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlane/craftlane-backend/pkg/carrier"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/craftlane/craftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor is the authenticated principal acting on shipments.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ConsolidateInput selects the orders an admin wants bundled into one
// carrier booking.
type ConsolidateInput struct {
	OrderIDs           []uuid.UUID
	OverrideIncomplete bool
	OverrideReason     string
}

// Service consolidates ready-to-ship orders into shipments and drives the
// shipped and delivered order transitions.
type Service interface {
	MarkReadyToShip(ctx context.Context, actor Actor, orderID uuid.UUID) error
	Consolidate(ctx context.Context, actor Actor, input ConsolidateInput) (*models.ConsolidatedShipment, error)
	RetryCarrierBooking(ctx context.Context, actor Actor, shipmentID uuid.UUID) (*models.ConsolidatedShipment, error)
	MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) error
	GetShipment(ctx context.Context, actor Actor, id uuid.UUID) (*models.ConsolidatedShipment, error)
	ListShipments(ctx context.Context, actor Actor, params pagination.Params) ([]models.ConsolidatedShipment, error)
}

type service struct {
	repo   Repository
	booker carrier.Booker
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the shipment consolidation service.
func NewService(repo Repository, booker carrier.Booker, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if booker == nil {
		return nil, fmt.Errorf("carrier booker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, booker: booker, tx: tx, outbox: outboxSvc, logg: logg, now: time.Now}, nil
}

func (s *service) MarkReadyToShip(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return err
	}
	if order.SellerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	affected, err := s.repo.MarkReadyToShip(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ready to ship")
	}
	if affected == 0 {
		return pkgerrors.InvalidTransition("order", order.Status.String(),
			enums.OrderStatusPaid.String(), enums.OrderStatusProcessing.String())
	}
	return nil
}

// Consolidate bundles the selected orders into one shipment and flips them
// to shipped in a single scope. The carrier is called only after the scope
// commits; a booking failure leaves the shipment pending for retry and never
// unships the orders.
func (s *service) Consolidate(ctx context.Context, actor Actor, input ConsolidateInput) (*models.ConsolidatedShipment, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins consolidate shipments")
	}
	orderIDs := dedupe(input.OrderIDs)
	if len(orderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order id required")
	}
	if input.OverrideIncomplete && input.OverrideReason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "override requires a reason")
	}

	var shipment *models.ConsolidatedShipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		orders, err := repo.FindOrders(ctx, orderIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
		}
		if len(orders) != len(orderIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more orders not found")
		}
		if err := checkConsolidatable(orders); err != nil {
			return err
		}
		if err := s.checkSiblingCompleteness(ctx, repo, orders, input, actor); err != nil {
			return err
		}

		totalWeight := decimal.Zero
		totalShipping := decimal.Zero
		for _, order := range orders {
			totalWeight = totalWeight.Add(order.WeightKG)
			totalShipping = totalShipping.Add(order.ShippingCost)
		}

		record := &models.ConsolidatedShipment{
			ID:            uuid.New(),
			BuyerID:       orders[0].BuyerID,
			Destination:   orders[0].Destination,
			Status:        enums.ShipmentStatusPending,
			TotalWeightKG: totalWeight,
			ShippingCost:  totalShipping,
			CreatedBy:     actor.UserID,
		}
		if input.OverrideIncomplete {
			record.OverrideReason = &input.OverrideReason
		}
		record, err = repo.CreateShipment(ctx, record)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		affected, err := repo.MarkOrdersShipped(ctx, orderIDs, record.ID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark orders shipped")
		}
		if affected != int64(len(orderIDs)) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				"an order changed state during consolidation")
		}

		actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
		for _, order := range orders {
			err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderShipped,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorRef,
				Data: payloads.OrderLifecycleEvent{
					OrderID:  order.ID,
					BuyerID:  order.BuyerID,
					SellerID: order.SellerID,
					Status:   enums.OrderStatusShipped,
				},
			})
			if err != nil {
				return err
			}
		}
		shipment = record
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentConsolidated,
			AggregateType: enums.AggregateShipment,
			AggregateID:   record.ID,
			Version:       1,
			Actor:         actorRef,
			Data: payloads.ShipmentConsolidatedEvent{
				ShipmentID: record.ID,
				BuyerID:    record.BuyerID,
				OrderIDs:   orderIDs,
				Booked:     false,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.bookWithCarrier(ctx, shipment, len(orderIDs))
	return shipment, nil
}

// checkConsolidatable validates the stateless preconditions over the order
// set itself. Runs inside the consolidation transaction so the values are
// current.
func checkConsolidatable(orders []models.Order) error {
	buyerID := orders[0].BuyerID
	fingerprint := orders[0].Destination.Fingerprint()
	for _, order := range orders {
		if order.ConsolidatedShipmentID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already consolidated")
		}
		if !order.ReadyToShip {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready to ship")
		}
		if order.Status != enums.OrderStatusPaid && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.InvalidTransition("order", order.Status.String(),
				enums.OrderStatusShipped.String())
		}
		if order.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeValidation, "orders belong to different buyers")
		}
		if order.Destination.Fingerprint() != fingerprint {
			return pkgerrors.New(pkgerrors.CodeValidation, "orders target different destinations")
		}
	}
	return nil
}

// checkSiblingCompleteness rejects consolidation while any non-cancelled
// sibling order of an involved checkout session is not yet ready to ship,
// unless the admin explicitly overrides with a logged reason.
func (s *service) checkSiblingCompleteness(ctx context.Context, repo Repository, orders []models.Order, input ConsolidateInput, actor Actor) error {
	sessions := map[uuid.UUID]struct{}{}
	for _, order := range orders {
		sessions[order.CheckoutSessionID] = struct{}{}
	}
	for sessionID := range sessions {
		siblings, err := repo.FindSessionOrders(ctx, sessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session orders")
		}
		for _, sibling := range siblings {
			if sibling.Status == enums.OrderStatusCancelled || sibling.ReadyToShip {
				continue
			}
			if input.OverrideIncomplete {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"checkout_session_id": sessionID.String(),
					"order_id":            sibling.ID.String(),
					"admin_id":            actor.UserID.String(),
					"reason":              input.OverrideReason,
				}), "consolidating past incomplete checkout session")
				break
			}
			return pkgerrors.New(pkgerrors.CodeIncompleteCheckout,
				"checkout session has sibling orders not ready to ship").
				WithDetails(map[string]any{"checkout_session_id": sessionID})
		}
	}
	return nil
}

// bookWithCarrier attempts the external booking after the consolidation has
// committed. Failure is recorded on the shipment and logged, never returned.
func (s *service) bookWithCarrier(ctx context.Context, shipment *models.ConsolidatedShipment, pieceCount int) {
	result, err := s.booker.BookShipment(ctx, carrier.BookingRequest{
		ShipmentID:    shipment.ID.String(),
		Destination:   shipment.Destination,
		TotalWeightKG: shipment.TotalWeightKG,
		PieceCount:    pieceCount,
	})
	logCtx := s.logg.WithFields(ctx, map[string]any{"shipment_id": shipment.ID.String()})
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()),
			"carrier booking failed, shipment left pending")
		if recErr := s.repo.RecordCarrierError(ctx, shipment.ID, err.Error()); recErr != nil {
			s.logg.Error(logCtx, "record carrier error", recErr)
		}
		msg := err.Error()
		shipment.CarrierError = &msg
		return
	}

	affected, err := s.repo.RecordBooking(ctx, shipment.ID, result.AWB, result.LabelURL)
	if err != nil || affected == 0 {
		s.logg.Warn(logCtx, "carrier booked but shipment row was not updated")
		return
	}
	shipment.Status = enums.ShipmentStatusBooked
	shipment.CarrierAWB = &result.AWB
	shipment.LabelURL = &result.LabelURL
	shipment.CarrierError = nil
	s.logg.Info(s.logg.WithField(logCtx, "awb", result.AWB), "carrier booking confirmed")
}

func (s *service) RetryCarrierBooking(ctx context.Context, actor Actor, shipmentID uuid.UUID) (*models.ConsolidatedShipment, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage shipments")
	}
	shipment, err := s.loadShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.Status != enums.ShipmentStatusPending {
		return nil, pkgerrors.InvalidTransition("shipment", shipment.Status.String(),
			enums.ShipmentStatusBooked.String())
	}
	s.bookWithCarrier(ctx, shipment, len(shipment.Orders))
	if shipment.Status != enums.ShipmentStatusBooked {
		return shipment, pkgerrors.New(pkgerrors.CodeDependency, "carrier booking failed")
	}
	return shipment, nil
}

func (s *service) MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins confirm delivery")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		affected, err := repo.MarkOrderDelivered(ctx, orderID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if affected == 0 {
			return pkgerrors.InvalidTransition("order", order.Status.String(),
				enums.OrderStatusDelivered.String())
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.OrderLifecycleEvent{
				OrderID:  order.ID,
				BuyerID:  order.BuyerID,
				SellerID: order.SellerID,
				Status:   enums.OrderStatusDelivered,
			},
		})
	})
}

func (s *service) GetShipment(ctx context.Context, actor Actor, id uuid.UUID) (*models.ConsolidatedShipment, error) {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin && shipment.BuyerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shipment does not involve user")
	}
	return shipment, nil
}

func (s *service) ListShipments(ctx context.Context, actor Actor, params pagination.Params) ([]models.ConsolidatedShipment, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins list shipments")
	}
	return s.repo.ListShipments(ctx, params)
}

func (s *service) loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadShipment(ctx context.Context, id uuid.UUID) (*models.ConsolidatedShipment, error) {
	shipment, err := s.repo.FindShipment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
