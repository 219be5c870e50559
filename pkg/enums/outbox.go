package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateQuote           OutboxAggregateType = "quote"
	AggregateDesignApproval  OutboxAggregateType = "design_approval"
	AggregateCheckoutSession OutboxAggregateType = "checkout_session"
	AggregateOrder           OutboxAggregateType = "order"
	AggregateBooking         OutboxAggregateType = "booking"
	AggregateTransaction     OutboxAggregateType = "transaction"
	AggregateReturnRequest   OutboxAggregateType = "return_request"
	AggregateShipment        OutboxAggregateType = "consolidated_shipment"
	AggregateBoostPurchase   OutboxAggregateType = "boost_purchase"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateQuote,
	AggregateDesignApproval,
	AggregateCheckoutSession,
	AggregateOrder,
	AggregateBooking,
	AggregateTransaction,
	AggregateReturnRequest,
	AggregateShipment,
	AggregateBoostPurchase,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventQuoteRequested         OutboxEventType = "quote_requested"
	EventQuoteSent              OutboxEventType = "quote_sent"
	EventQuoteAccepted          OutboxEventType = "quote_accepted"
	EventQuoteRejected          OutboxEventType = "quote_rejected"
	EventDesignSubmitted        OutboxEventType = "design_submitted"
	EventDesignApproved         OutboxEventType = "design_approved"
	EventDesignRejected         OutboxEventType = "design_rejected"
	EventDesignChangesRequested OutboxEventType = "design_changes_requested"
	EventDesignResubmitted      OutboxEventType = "design_resubmitted"
	EventCheckoutConverted      OutboxEventType = "checkout_converted"
	EventOrderPaid              OutboxEventType = "order_paid"
	EventOrderShipped           OutboxEventType = "order_shipped"
	EventOrderDelivered         OutboxEventType = "order_delivered"
	EventOrderCancelled         OutboxEventType = "order_cancelled"
	EventPaymentEscrowed        OutboxEventType = "payment_escrowed"
	EventPaymentReleased        OutboxEventType = "payment_released"
	EventPaymentRefunded        OutboxEventType = "payment_refunded"
	EventReturnRequested        OutboxEventType = "return_requested"
	EventReturnResolved         OutboxEventType = "return_resolved"
	EventShipmentConsolidated   OutboxEventType = "shipment_consolidated"
	EventBoostActivated         OutboxEventType = "boost_activated"
	EventNotificationRequested  OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventQuoteRequested,
	EventQuoteSent,
	EventQuoteAccepted,
	EventQuoteRejected,
	EventDesignSubmitted,
	EventDesignApproved,
	EventDesignRejected,
	EventDesignChangesRequested,
	EventDesignResubmitted,
	EventCheckoutConverted,
	EventOrderPaid,
	EventOrderShipped,
	EventOrderDelivered,
	EventOrderCancelled,
	EventPaymentEscrowed,
	EventPaymentReleased,
	EventPaymentRefunded,
	EventReturnRequested,
	EventReturnResolved,
	EventShipmentConsolidated,
	EventBoostActivated,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
