package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// maxSummaryImages bounds the thumbnails returned per order in the list view.
const maxSummaryImages = 4

// OrderSummary is one row of the buyer's order history.
type OrderSummary struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Total       string            `json:"total"`
	TotalCents  int64             `json:"total_cents"`
	Currency    string            `json:"currency"`
	ItemCount   int               `json:"item_count"`
	ItemImages  []string          `json:"item_images"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderList wraps a page of summaries plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// LineItemDetail is a purchased product with the price confirmed at payment.
type LineItemDetail struct {
	ProductRef     string  `json:"product_ref"`
	Name           string  `json:"name"`
	ImageURL       *string `json:"image_url,omitempty"`
	Quantity       int     `json:"quantity"`
	UnitPrice      string  `json:"unit_price"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Total          string  `json:"total"`
	TotalCents     int64   `json:"total_cents"`
}

// OrderDetail is the full order returned to its owner.
type OrderDetail struct {
	OrderSummary
	Email     *string          `json:"email,omitempty"`
	Shipping  *types.Address   `json:"shipping_address,omitempty"`
	LineItems []LineItemDetail `json:"line_items"`
}

func toSummary(order models.Order) OrderSummary {
	images := make([]string, 0, maxSummaryImages)
	count := 0
	for _, item := range order.LineItems {
		count += item.Qty
		if item.ImageURL != nil && *item.ImageURL != "" && len(images) < maxSummaryImages {
			images = append(images, *item.ImageURL)
		}
	}
	return OrderSummary{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       money.Format(order.TotalCents),
		TotalCents:  order.TotalCents,
		Currency:    order.Currency,
		ItemCount:   count,
		ItemImages:  images,
		CreatedAt:   order.CreatedAt,
	}
}

func toDetail(order models.Order) OrderDetail {
	detail := OrderDetail{
		OrderSummary: toSummary(order),
		Email:        order.Email,
		LineItems:    make([]LineItemDetail, 0, len(order.LineItems)),
	}
	if !order.Shipping.IsZero() {
		shipping := order.Shipping
		detail.Shipping = &shipping
	}
	for _, item := range order.LineItems {
		detail.LineItems = append(detail.LineItems, LineItemDetail{
			ProductRef:     item.ProductRef,
			Name:           item.Name,
			ImageURL:       item.ImageURL,
			Quantity:       item.Qty,
			UnitPrice:      money.Format(item.UnitPriceCents),
			UnitPriceCents: item.UnitPriceCents,
			Total:          money.Format(item.TotalCents),
			TotalCents:     item.TotalCents,
		})
	}
	return detail
}
