package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/craftlane/craftlane-backend/pkg/db/models"
	"github.com/craftlane/craftlane-backend/pkg/enums"
	"github.com/craftlane/craftlane-backend/pkg/logger"
	"github.com/craftlane/craftlane-backend/pkg/outbox"
	"github.com/craftlane/craftlane-backend/pkg/outbox/idempotency"
	"github.com/craftlane/craftlane-backend/pkg/outbox/payloads"
	"github.com/craftlane/craftlane-backend/pkg/types"
	"github.com/google/uuid"
)

const notificationConsumer = "marketplace-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns published lifecycle events into in-app notification rows.
// Delivery failures never touch the business transition that emitted the
// event; the worst case is a redelivered message, which the idempotency
// ledger absorbs.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification fan-out consumer for one subscription.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	rows, err := c.buildNotifications(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}
	if len(rows) == 0 {
		c.logg.Info(logCtx, "event produces no notification")
		return processResult{ack: true}
	}

	for _, row := range rows {
		if err := c.repo.Create(ctx, row); err != nil {
			c.logg.Error(logCtx, "notification write failed", err)
			_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
			return processResult{nack: true}
		}
	}
	c.logg.Info(c.logg.WithField(logCtx, "count", len(rows)), "notifications created")
	return processResult{ack: true}
}

// buildNotifications maps one decoded event to the rows it produces. Unknown
// event types produce nothing and are acked.
func (c *Consumer) buildNotifications(eventType enums.OutboxEventType, data json.RawMessage) ([]*models.Notification, error) {
	switch eventType {
	case enums.EventQuoteRequested, enums.EventQuoteSent, enums.EventQuoteAccepted, enums.EventQuoteRejected:
		var payload payloads.QuoteLifecycleEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return quoteNotifications(eventType, payload), nil

	case enums.EventDesignSubmitted, enums.EventDesignResubmitted,
		enums.EventDesignApproved, enums.EventDesignRejected, enums.EventDesignChangesRequested:
		var payload payloads.DesignLifecycleEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return designNotifications(eventType, payload), nil

	case enums.EventCheckoutConverted:
		var payload payloads.CheckoutConvertedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{{
			UserID:  payload.BuyerID,
			Type:    enums.NotificationTypeOrderAlert,
			Title:   "Order placed",
			Message: fmt.Sprintf("Your checkout created %d order(s) and %d booking(s).", len(payload.OrderIDs), len(payload.BookingIDs)),
			Metadata: types.JSONMap{
				"checkout_session_id": payload.CheckoutSessionID.String(),
			},
		}}, nil

	case enums.EventOrderPaid, enums.EventOrderShipped, enums.EventOrderDelivered, enums.EventOrderCancelled:
		var payload payloads.OrderLifecycleEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return orderNotifications(eventType, payload), nil

	case enums.EventPaymentEscrowed, enums.EventPaymentReleased, enums.EventPaymentRefunded:
		var payload payloads.PaymentLifecycleEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return paymentNotifications(eventType, payload), nil

	case enums.EventReturnRequested, enums.EventReturnResolved:
		var payload payloads.ReturnLifecycleEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return returnNotifications(eventType, payload), nil

	case enums.EventShipmentConsolidated:
		var payload payloads.ShipmentConsolidatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{{
			UserID:  payload.BuyerID,
			Type:    enums.NotificationTypeShipmentAlert,
			Title:   "Orders shipped together",
			Message: fmt.Sprintf("%d of your orders were consolidated into one shipment.", len(payload.OrderIDs)),
			Metadata: types.JSONMap{
				"shipment_id": payload.ShipmentID.String(),
			},
		}}, nil

	case enums.EventBoostActivated:
		var payload payloads.BoostActivatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return []*models.Notification{{
			UserID:  payload.SellerID,
			Type:    enums.NotificationTypeSystemAnnouncement,
			Title:   "Boost activated",
			Message: fmt.Sprintf("Your listing boost is live until %s.", payload.ExpiresAt.Format("2 Jan 2006")),
			Metadata: types.JSONMap{
				"boost_purchase_id": payload.BoostPurchaseID.String(),
				"product_id":        payload.ProductID.String(),
			},
		}}, nil

	case enums.EventNotificationRequested:
		var payload payloads.NotificationRequestedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.UserID == uuid.Nil || !payload.Type.IsValid() {
			return nil, fmt.Errorf("notification request missing user or type")
		}
		return []*models.Notification{{
			UserID:   payload.UserID,
			Type:     payload.Type,
			Title:    payload.Title,
			Message:  payload.Body,
			Metadata: types.JSONMap(payload.Metadata),
		}}, nil

	default:
		return nil, nil
	}
}

func quoteNotifications(eventType enums.OutboxEventType, payload payloads.QuoteLifecycleEvent) []*models.Notification {
	metadata := types.JSONMap{"quote_id": payload.QuoteID.String()}
	switch eventType {
	case enums.EventQuoteRequested:
		return []*models.Notification{{
			UserID: payload.SellerID, Type: enums.NotificationTypeQuoteRequested,
			Title: "New quote request", Message: "A buyer asked you for a custom quote.", Metadata: metadata,
		}}
	case enums.EventQuoteSent:
		return []*models.Notification{{
			UserID: payload.BuyerID, Type: enums.NotificationTypeQuoteSent,
			Title: "Quote received", Message: "The seller sent you a quote.", Metadata: metadata,
		}}
	default:
		verb := "accepted"
		if eventType == enums.EventQuoteRejected {
			verb = "rejected"
		}
		return []*models.Notification{{
			UserID: payload.SellerID, Type: enums.NotificationTypeQuoteDecided,
			Title: "Quote " + verb, Message: fmt.Sprintf("The buyer %s your quote.", verb), Metadata: metadata,
		}}
	}
}

func designNotifications(eventType enums.OutboxEventType, payload payloads.DesignLifecycleEvent) []*models.Notification {
	metadata := types.JSONMap{"design_approval_id": payload.DesignApprovalID.String()}
	switch eventType {
	case enums.EventDesignSubmitted, enums.EventDesignResubmitted:
		title := "Design submitted"
		if eventType == enums.EventDesignResubmitted {
			title = "Design resubmitted"
		}
		return []*models.Notification{{
			UserID: payload.SellerID, Type: enums.NotificationTypeDesignSubmitted,
			Title: title, Message: "A design is waiting for your review.", Metadata: metadata,
		}}
	default:
		message := "Your design was approved."
		switch eventType {
		case enums.EventDesignRejected:
			message = "Your design was rejected."
		case enums.EventDesignChangesRequested:
			message = "The seller requested changes to your design."
		}
		if payload.SellerNotes != "" {
			message = message + " Notes: " + payload.SellerNotes
		}
		return []*models.Notification{{
			UserID: payload.BuyerID, Type: enums.NotificationTypeDesignDecided,
			Title: "Design reviewed", Message: message, Metadata: metadata,
		}}
	}
}

func orderNotifications(eventType enums.OutboxEventType, payload payloads.OrderLifecycleEvent) []*models.Notification {
	metadata := types.JSONMap{"order_id": payload.OrderID.String()}
	switch eventType {
	case enums.EventOrderPaid:
		return []*models.Notification{{
			UserID: payload.SellerID, Type: enums.NotificationTypeOrderAlert,
			Title: "Order paid", Message: "An order was paid and is ready to prepare.", Metadata: metadata,
		}}
	case enums.EventOrderShipped:
		return []*models.Notification{{
			UserID: payload.BuyerID, Type: enums.NotificationTypeShipmentAlert,
			Title: "Order shipped", Message: "Your order is on its way.", Metadata: metadata,
		}}
	case enums.EventOrderDelivered:
		return []*models.Notification{{
			UserID: payload.BuyerID, Type: enums.NotificationTypeShipmentAlert,
			Title: "Order delivered", Message: "Your order was delivered.", Metadata: metadata,
		}}
	default:
		return []*models.Notification{
			{UserID: payload.BuyerID, Type: enums.NotificationTypeOrderAlert,
				Title: "Order cancelled", Message: "An order was cancelled.", Metadata: metadata},
			{UserID: payload.SellerID, Type: enums.NotificationTypeOrderAlert,
				Title: "Order cancelled", Message: "An order was cancelled.", Metadata: metadata},
		}
	}
}

func paymentNotifications(eventType enums.OutboxEventType, payload payloads.PaymentLifecycleEvent) []*models.Notification {
	metadata := types.JSONMap{"transaction_id": payload.TransactionID.String()}
	switch eventType {
	case enums.EventPaymentEscrowed:
		return []*models.Notification{{
			UserID: payload.BuyerID, Type: enums.NotificationTypePaymentAlert,
			Title: "Payment received", Message: "Your payment is held in escrow.", Metadata: metadata,
		}}
	case enums.EventPaymentReleased:
		return []*models.Notification{{
			UserID: payload.SellerID, Type: enums.NotificationTypePaymentAlert,
			Title: "Payout released", Message: fmt.Sprintf("A payout of %s was released.", payload.SellerPayout.StringFixed(2)), Metadata: metadata,
		}}
	default:
		return []*models.Notification{{
			UserID: payload.BuyerID, Type: enums.NotificationTypePaymentAlert,
			Title: "Payment refunded", Message: "Your payment was refunded.", Metadata: metadata,
		}}
	}
}

func returnNotifications(eventType enums.OutboxEventType, payload payloads.ReturnLifecycleEvent) []*models.Notification {
	metadata := types.JSONMap{"return_request_id": payload.ReturnRequestID.String()}
	if eventType == enums.EventReturnRequested {
		return []*models.Notification{{
			UserID: payload.SellerID, Type: enums.NotificationTypeReturnAlert,
			Title: "Return requested", Message: "A buyer opened a return request.", Metadata: metadata,
		}}
	}
	message := "The return request was resolved: " + payload.Status.String() + "."
	return []*models.Notification{
		{UserID: payload.BuyerID, Type: enums.NotificationTypeReturnAlert,
			Title: "Return resolved", Message: message, Metadata: metadata},
		{UserID: payload.SellerID, Type: enums.NotificationTypeReturnAlert,
			Title: "Return resolved", Message: message, Metadata: metadata},
	}
}
