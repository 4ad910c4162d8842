package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

const (
	maxNameLen     = 250
	maxImageURLLen = 2048
)

// AddItemRequest is a product as displayed by the storefront. Price is a
// decimal amount in major units, e.g. 25.00.
type AddItemRequest struct {
	ProductRef string          `json:"product_ref" validate:"required,max=64,excludesall=0x2C"`
	Name       string          `json:"name" validate:"required,max=250"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"image_url" validate:"omitempty,url,max=2048"`
}

// ToItem converts the display price to minor units.
func (r AddItemRequest) ToItem() (cartsvc.Item, error) {
	if r.Price.IsNegative() {
		return cartsvc.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]any{"field": "price"})
	}
	if !money.WithinUnitLimit(r.Price) {
		return cartsvc.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "price exceeds the maximum allowed amount").
			WithDetails(map[string]any{"field": "price", "max": money.Format(money.MaxUnitAmountCents)})
	}
	if !r.Price.Equal(r.Price.Round(2)) {
		return cartsvc.Item{}, pkgerrors.New(pkgerrors.CodeValidation, "price has more than two decimal places").
			WithDetails(map[string]any{"field": "price"})
	}
	return cartsvc.Item{
		ProductRef:     strings.TrimSpace(r.ProductRef),
		Name:           validators.SanitizeString(r.Name, maxNameLen),
		UnitPriceCents: money.Cents(r.Price),
		ImageURL:       validators.SanitizeString(r.ImageURL, maxImageURLLen),
	}, nil
}

// SetQuantityRequest sets an exact quantity; zero removes the line.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}
