package cart

import (
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

type itemResponse struct {
	ProductRef     string `json:"product_ref"`
	Name           string `json:"name"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotal      string `json:"line_total"`
}

type cartResponse struct {
	Items           []itemResponse `json:"items"`
	TotalItems      int            `json:"total_items"`
	TotalPrice      string         `json:"total_price"`
	TotalPriceCents int64          `json:"total_price_cents"`
}

func newCartResponse(snapshot *cartsvc.Snapshot) cartResponse {
	resp := cartResponse{Items: []itemResponse{}}
	if snapshot == nil {
		resp.TotalPrice = money.Format(0)
		return resp
	}
	for _, item := range snapshot.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductRef:     item.ProductRef,
			Name:           item.Name,
			ImageURL:       item.ImageURL,
			Quantity:       item.Quantity,
			UnitPrice:      money.Format(item.UnitPriceCents),
			UnitPriceCents: item.UnitPriceCents,
			LineTotal:      money.Format(item.UnitPriceCents * int64(item.Quantity)),
		})
	}
	resp.TotalItems = snapshot.TotalItems
	resp.TotalPrice = money.Format(snapshot.TotalPriceCents)
	resp.TotalPriceCents = snapshot.TotalPriceCents
	return resp
}
