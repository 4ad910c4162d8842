package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the durable record materialized from a completed checkout session.
// At most one row exists per StripeSessionID.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber           string            `gorm:"column:order_number;not null;uniqueIndex"`
	StripeSessionID       string            `gorm:"column:stripe_session_id;not null;uniqueIndex"`
	StripePaymentIntentID *string           `gorm:"column:stripe_payment_intent_id"`
	BuyerID               *string           `gorm:"column:buyer_id;index"`
	Email                 *string           `gorm:"column:email"`
	Status                enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Currency              string            `gorm:"column:currency;not null"`
	TotalCents            int64             `gorm:"column:total_cents;not null"`
	Shipping              types.Address     `gorm:"embedded;embeddedPrefix:shipping_"`
	LineItems             []OrderLineItem   `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
