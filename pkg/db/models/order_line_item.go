package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem freezes the confirmed price and quantity of one purchased product.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Position       int       `gorm:"column:position;not null"`
	ProductRef     string    `gorm:"column:product_ref;not null"`
	Name           string    `gorm:"column:name;not null"`
	ImageURL       *string   `gorm:"column:image_url"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	TotalCents     int64     `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
