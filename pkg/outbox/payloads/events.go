package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlane/craftlane-backend/pkg/enums"
)

// QuoteLifecycleEvent is emitted on every quote transition.
type QuoteLifecycleEvent struct {
	QuoteID  uuid.UUID         `json:"quote_id"`
	BuyerID  uuid.UUID         `json:"buyer_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	Status   enums.QuoteStatus `json:"status"`
}

// DesignLifecycleEvent is emitted on design submission and every review decision.
type DesignLifecycleEvent struct {
	DesignApprovalID uuid.UUID                  `json:"design_approval_id"`
	BuyerID          uuid.UUID                  `json:"buyer_id"`
	SellerID         uuid.UUID                  `json:"seller_id"`
	Status           enums.DesignApprovalStatus `json:"status"`
	SellerNotes      string                     `json:"seller_notes,omitempty"`
}

// CheckoutConvertedEvent signals a cart turned into orders and bookings.
type CheckoutConvertedEvent struct {
	CheckoutSessionID uuid.UUID           `json:"checkout_session_id"`
	BuyerID           uuid.UUID           `json:"buyer_id"`
	OrderIDs          []uuid.UUID         `json:"order_ids"`
	BookingIDs        []uuid.UUID         `json:"booking_ids"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
}

// OrderLifecycleEvent reports order status changes after payment.
type OrderLifecycleEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	BuyerID  uuid.UUID         `json:"buyer_id"`
	SellerID uuid.UUID         `json:"seller_id"`
	Status   enums.OrderStatus `json:"status"`
}

// PaymentLifecycleEvent reports escrow transitions on a transaction.
type PaymentLifecycleEvent struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	BuyerID       uuid.UUID               `json:"buyer_id"`
	SellerID      uuid.UUID               `json:"seller_id"`
	Kind          enums.TransactionKind   `json:"kind"`
	Status        enums.TransactionStatus `json:"status"`
	Amount        decimal.Decimal         `json:"amount"`
	SellerPayout  decimal.Decimal         `json:"seller_payout"`
}

// ReturnLifecycleEvent is emitted when a return is opened or resolved.
type ReturnLifecycleEvent struct {
	ReturnRequestID uuid.UUID          `json:"return_request_id"`
	BuyerID         uuid.UUID          `json:"buyer_id"`
	SellerID        uuid.UUID          `json:"seller_id"`
	Status          enums.ReturnStatus `json:"status"`
	ApprovedAmount  *decimal.Decimal   `json:"approved_amount,omitempty"`
}

// ShipmentConsolidatedEvent reports a new consolidated shipment and its orders.
type ShipmentConsolidatedEvent struct {
	ShipmentID uuid.UUID   `json:"shipment_id"`
	BuyerID    uuid.UUID   `json:"buyer_id"`
	OrderIDs   []uuid.UUID `json:"order_ids"`
	AWB        string      `json:"awb,omitempty"`
	Booked     bool        `json:"booked"`
}

// BoostActivatedEvent is emitted when a paid boost goes live.
type BoostActivatedEvent struct {
	BoostPurchaseID uuid.UUID `json:"boost_purchase_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// NotificationRequestedEvent tells the notification consumer to fan out an alert.
type NotificationRequestedEvent struct {
	UserID   uuid.UUID              `json:"user_id"`
	Type     enums.NotificationType `json:"type"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Metadata map[string]any         `json:"metadata,omitempty"`
}
