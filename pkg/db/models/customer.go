package models

import "time"

// Customer links a buyer identity to its Stripe customer. Rows are written by
// the identity provider's lifecycle hook.
type Customer struct {
	BuyerID          string    `gorm:"column:buyer_id;primaryKey"`
	Email            *string   `gorm:"column:email"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id;not null;uniqueIndex"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
