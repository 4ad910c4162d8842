package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderPaidLineItem mirrors one reconciled line item.
type OrderPaidLineItem struct {
	ProductRef     string `json:"product_ref"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// OrderPaidEvent is emitted when a completed checkout session becomes an order.
// Status is pending for delayed payment methods.
type OrderPaidEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	StripeSessionID string              `json:"stripe_session_id"`
	BuyerID         string              `json:"buyer_id,omitempty"`
	Status          enums.OrderStatus   `json:"status"`
	Currency        string              `json:"currency"`
	TotalCents      int64               `json:"total_cents"`
	LineItems       []OrderPaidLineItem `json:"line_items"`
	PaidAt          time.Time           `json:"paid_at"`
}

// OrderStatusChangedEvent reports a settled delayed payment.
type OrderStatusChangedEvent struct {
	OrderID         uuid.UUID         `json:"order_id"`
	StripeSessionID string            `json:"stripe_session_id"`
	From            enums.OrderStatus `json:"from"`
	To              enums.OrderStatus `json:"to"`
	ChangedAt       time.Time         `json:"changed_at"`
}
