package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/craftlane/craftlane-backend/internal/cart"
	"github.com/craftlane/craftlane-backend/internal/catalog"
	"github.com/craftlane/craftlane-backend/internal/purchase"
	pkgcheckout "github.com/craftlane/craftlane-backend/pkg/checkout"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/craftlane/craftlane-backend/pkg/payments"
	"github.com/craftlane/craftlane-backend/pkg/types"
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

type requirementValidator interface {
	CanPurchase(ctx context.Context, tx *gorm.DB, input purchase.Input) (*purchase.Decision, error)
}

// Input is one cart submission.
type Input struct {
	BuyerID       uuid.UUID
	PaymentMethod enums.PaymentMethod
	Destination   *types.Address
	ShippingCost  decimal.Decimal
	Actor         Actor
}

// Actor is the authenticated principal performing the checkout.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Result reports everything the single checkout transaction created. For
// gateway payments Redirect carries the hosted payment page; payment
// confirmation itself arrives later through the webhook.
type Result struct {
	Session  *models.CheckoutSession
	Orders   []models.Order
	Bookings []models.Booking
	Redirect *payments.Redirect
}

// Service converts a buyer's cart into orders, bookings and pending escrow
// transactions in one atomic scope. Nothing is created unless every line
// passes re-validation inside that scope.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
	GetSession(ctx context.Context, id, actorID uuid.UUID) (*models.CheckoutSession, error)
}

type service struct {
	repo           Repository
	cartRepo       cart.Repository
	catalogRepo    catalog.Repository
	validator      requirementValidator
	gateway        payments.Gateway
	tx             txRunner
	outbox         outboxPublisher
	commissionRate decimal.Decimal
}

// NewService builds the checkout orchestrator.
func NewService(repo Repository, cartRepo cart.Repository, catalogRepo catalog.Repository, validator requirementValidator, gateway payments.Gateway, tx txRunner, outboxSvc outboxPublisher, commissionRate decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if validator == nil {
		return nil, fmt.Errorf("purchase validator required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate must be in [0,1)")
	}
	return &service{
		repo:           repo,
		cartRepo:       cartRepo,
		catalogRepo:    catalogRepo,
		validator:      validator,
		gateway:        gateway,
		tx:             tx,
		outbox:         outboxSvc,
		commissionRate: commissionRate,
	}, nil
}

// orderLine is one resolved, re-validated cart line ready to persist.
type orderLine struct {
	cartItem models.CartItem
	item     catalog.Item
	unit     decimal.Decimal
	total    decimal.Decimal
	weight   decimal.Decimal
	quoteID  *uuid.UUID
	designID *uuid.UUID
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.ShippingCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}

	// The gateway reference is generated up front so the session row can
	// carry it inside the transaction; the external gateway call happens
	// only after the scope commits.
	var gatewayRef *string
	if input.PaymentMethod == enums.PaymentMethodGateway {
		ref := "cl-" + uuid.NewString()
		gatewayRef = &ref
	}

	result := &Result{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		lines, err := cartRepo.ListByBuyer(ctx, input.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		var productLines, serviceLines []orderLine
		for _, line := range lines {
			resolved, err := s.resolveLine(ctx, tx, catalogRepo, input.BuyerID, line)
			if err != nil {
				return err
			}
			if resolved.item.Shippable {
				productLines = append(productLines, *resolved)
			} else {
				serviceLines = append(serviceLines, *resolved)
			}
		}

		if len(productLines) > 0 {
			if input.Destination == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "shipping destination required")
			}
			if err := input.Destination.Validate(); err != nil {
				return err
			}
		}

		shares, err := shippingShares(input.ShippingCost, productLines)
		if err != nil {
			return err
		}

		total := input.ShippingCost
		for _, line := range productLines {
			total = total.Add(line.total)
		}
		for _, line := range serviceLines {
			total = total.Add(line.total)
		}

		session := &models.CheckoutSession{
			BuyerID:          input.BuyerID,
			PaymentMethod:    input.PaymentMethod,
			GatewayReference: gatewayRef,
			ShippingCost:     input.ShippingCost,
			TotalAmount:      total,
			Destination:      input.Destination,
		}
		session, err = repo.CreateSession(ctx, session)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
		}

		orders := make([]models.Order, 0, len(productLines))
		for i, line := range productLines {
			orders = append(orders, models.Order{
				ID:                uuid.New(),
				CheckoutSessionID: session.ID,
				BuyerID:           input.BuyerID,
				SellerID:          line.item.SellerID,
				ProductID:         *line.item.ProductID,
				VariantID:         *line.item.VariantID,
				QuoteID:           line.quoteID,
				DesignApprovalID:  line.designID,
				Status:            enums.OrderStatusPendingPayment,
				UnitPrice:         line.unit,
				Quantity:          line.cartItem.Quantity,
				TotalAmount:       line.total,
				ShippingCost:      shares[i],
				WeightKG:          line.weight,
				Destination:       *input.Destination,
			})
		}
		if err := repo.CreateOrders(ctx, orders); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create orders")
		}

		bookings := make([]models.Booking, 0, len(serviceLines))
		for _, line := range serviceLines {
			bookings = append(bookings, models.Booking{
				ID:                uuid.New(),
				CheckoutSessionID: session.ID,
				BuyerID:           input.BuyerID,
				SellerID:          line.item.SellerID,
				ServiceID:         *line.item.ServiceID,
				PackageID:         *line.item.PackageID,
				QuoteID:           line.quoteID,
				DesignApprovalID:  line.designID,
				Status:            enums.BookingStatusPendingPayment,
				UnitPrice:         line.unit,
				Quantity:          line.cartItem.Quantity,
				TotalAmount:       line.total,
			})
		}
		if err := repo.CreateBookings(ctx, bookings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bookings")
		}

		transactions := make([]models.Transaction, 0, len(orders)+len(bookings))
		for i := range orders {
			order := orders[i]
			orderID := order.ID
			charged := order.TotalAmount.Add(order.ShippingCost)
			transactions = append(transactions, s.buildTransaction(
				enums.TransactionKindOrder, &orderID, nil, order.BuyerID, order.SellerID,
				charged, order.TotalAmount))
		}
		for i := range bookings {
			booking := bookings[i]
			bookingID := booking.ID
			transactions = append(transactions, s.buildTransaction(
				enums.TransactionKindBooking, nil, &bookingID, booking.BuyerID, booking.SellerID,
				booking.TotalAmount, booking.TotalAmount))
		}
		if err := repo.CreateTransactions(ctx, transactions); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transactions")
		}

		if err := cartRepo.ClearBuyer(ctx, input.BuyerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		orderIDs := make([]uuid.UUID, 0, len(orders))
		for _, order := range orders {
			orderIDs = append(orderIDs, order.ID)
		}
		bookingIDs := make([]uuid.UUID, 0, len(bookings))
		for _, booking := range bookings {
			bookingIDs = append(bookingIDs, booking.ID)
		}

		result.Session = session
		result.Orders = orders
		result.Bookings = bookings

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutConverted,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   session.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role.String()},
			Data: payloads.CheckoutConvertedEvent{
				CheckoutSessionID: session.ID,
				BuyerID:           input.BuyerID,
				OrderIDs:          orderIDs,
				BookingIDs:        bookingIDs,
				PaymentMethod:     input.PaymentMethod,
				TotalAmount:       total,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if gatewayRef != nil {
		redirect, err := s.gateway.CreateRedirect(ctx, payments.Charge{
			Reference:   *gatewayRef,
			Description: "Checkout " + shortRef(result.Session.ID),
			Amount:      result.Session.TotalAmount,
		})
		if err != nil {
			// The session and its pending rows are already committed; the
			// buyer retries payment against the same reference.
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment redirect")
		}
		result.Redirect = redirect
	}
	return result, nil
}

// resolveLine re-reads the catalog and re-validates purchase gating inside
// the checkout transaction. Values cached at cart-add time are not trusted.
func (s *service) resolveLine(ctx context.Context, tx *gorm.DB, catalogRepo catalog.Repository, buyerID uuid.UUID, line models.CartItem) (*orderLine, error) {
	var item *catalog.Item
	var err error
	switch {
	case line.ProductID != nil && line.VariantID != nil:
		item, err = catalog.ResolveVariant(ctx, catalogRepo, *line.ProductID, *line.VariantID)
	case line.ServiceID != nil && line.PackageID != nil:
		item, err = catalog.ResolvePackage(ctx, catalogRepo, *line.ServiceID, *line.PackageID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line is missing its item reference")
	}
	if err != nil {
		return nil, err
	}

	decision, err := s.validator.CanPurchase(ctx, tx, purchase.Input{
		BuyerID:  buyerID,
		Item:     *item,
		Quantity: line.Quantity,
		QuoteID:  line.QuoteID,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, purchase.RequirementError(decision)
	}

	unit := item.UnitPrice
	var quoteID, designID *uuid.UUID
	if decision.Quote != nil {
		if decision.Quote.QuotedPrice == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "accepted quote is missing its price")
		}
		unit = *decision.Quote.QuotedPrice
		id := decision.Quote.ID
		quoteID = &id
	}
	if decision.Design != nil {
		id := decision.Design.ID
		designID = &id
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	return &orderLine{
		cartItem: line,
		item:     *item,
		unit:     unit,
		total:    unit.Mul(qty),
		weight:   item.WeightKG.Mul(qty),
		quoteID:  quoteID,
		designID: designID,
	}, nil
}

func (s *service) buildTransaction(kind enums.TransactionKind, orderID, bookingID *uuid.UUID, buyerID, sellerID uuid.UUID, amount, commissionBase decimal.Decimal) models.Transaction {
	commission := commissionBase.Mul(s.commissionRate).Round(2)
	return models.Transaction{
		Kind:             kind,
		OrderID:          orderID,
		BookingID:        bookingID,
		BuyerID:          buyerID,
		SellerID:         sellerID,
		Amount:           amount,
		CommissionRate:   s.commissionRate,
		CommissionAmount: commission,
		SellerPayout:     amount.Sub(commission),
		Status:           enums.TransactionStatusPending,
	}
}

// shippingShares distributes the session-wide shipping cost across order
// lines by weight. A sole order line takes the full cost so no remainder is
// lost to rounding.
func shippingShares(total decimal.Decimal, lines []orderLine) ([]decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	weights := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		weights = append(weights, line.weight)
	}
	return pkgcheckout.SplitShippingByWeight(total, weights)
}

func (s *service) GetSession(ctx context.Context, id, actorID uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.repo.FindSession(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if session.BuyerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout session does not belong to buyer")
	}
	return session, nil
}

func shortRef(id uuid.UUID) string {
	s := id.String()
	if len(s) >= 8 {
		return s[:8]
	}
	return strconv.Itoa(len(s))
}
