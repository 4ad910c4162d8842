package reconciler

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// ErrPairing marks confirmed line items that cannot be matched to the cart
// recorded in session metadata.
var ErrPairing = errors.New("confirmed line items do not match session metadata")

// ConfirmedItem is one line item as charged by the processor.
type ConfirmedItem struct {
	ProductRef     string
	Name           string
	ImageURL       string
	Quantity       int
	UnitPriceCents int64
}

// PairedItem is a confirmed line item attributed to a storefront product.
type PairedItem struct {
	Position       int
	ProductRef     string
	Name           string
	ImageURL       string
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
}

// Pair attributes each confirmed line item to a product ref from metadata.
// When every item carries its own product ref the refs are matched directly;
// otherwise items are matched by position. Counts and quantities must agree
// either way. The result follows metadata order.
func Pair(meta checkout.SessionMetadata, confirmed []ConfirmedItem) ([]PairedItem, error) {
	if len(confirmed) == 0 {
		return nil, fmt.Errorf("%w: no confirmed line items", ErrPairing)
	}
	if len(meta.ProductRefs) != len(confirmed) {
		return nil, fmt.Errorf("%w: %d metadata refs but %d line items", ErrPairing, len(meta.ProductRefs), len(confirmed))
	}

	positions, err := positionsFor(meta, confirmed)
	if err != nil {
		return nil, err
	}

	paired := make([]PairedItem, len(confirmed))
	for i, item := range confirmed {
		pos := positions[i]
		if item.Quantity != meta.Quantities[pos] {
			return nil, fmt.Errorf("%w: %s charged quantity %d but cart held %d", ErrPairing, meta.ProductRefs[pos], item.Quantity, meta.Quantities[pos])
		}
		if item.UnitPriceCents < 0 {
			return nil, fmt.Errorf("%w: %s has no unit price", ErrPairing, meta.ProductRefs[pos])
		}
		name := item.Name
		if name == "" {
			name = meta.ProductRefs[pos]
		}
		paired[pos] = PairedItem{
			Position:       pos,
			ProductRef:     meta.ProductRefs[pos],
			Name:           name,
			ImageURL:       item.ImageURL,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.UnitPriceCents * int64(item.Quantity),
		}
	}
	return paired, nil
}

// positionsFor maps each confirmed item index to its metadata position.
func positionsFor(meta checkout.SessionMetadata, confirmed []ConfirmedItem) ([]int, error) {
	positions := make([]int, len(confirmed))

	tagged := true
	for _, item := range confirmed {
		if item.ProductRef == "" {
			tagged = false
			break
		}
	}

	if !tagged {
		for i, item := range confirmed {
			if item.ProductRef != "" && item.ProductRef != meta.ProductRefs[i] {
				return nil, fmt.Errorf("%w: line item %d is %s but metadata holds %s", ErrPairing, i, item.ProductRef, meta.ProductRefs[i])
			}
			positions[i] = i
		}
		return positions, nil
	}

	index := make(map[string]int, len(meta.ProductRefs))
	for pos, ref := range meta.ProductRefs {
		if _, dup := index[ref]; dup {
			return nil, fmt.Errorf("%w: metadata repeats %s", ErrPairing, ref)
		}
		index[ref] = pos
	}
	used := make([]bool, len(meta.ProductRefs))
	for i, item := range confirmed {
		pos, ok := index[item.ProductRef]
		if !ok {
			return nil, fmt.Errorf("%w: line item %s is not in metadata", ErrPairing, item.ProductRef)
		}
		if used[pos] {
			return nil, fmt.Errorf("%w: %s charged more than once", ErrPairing, item.ProductRef)
		}
		used[pos] = true
		positions[i] = pos
	}
	return positions, nil
}

// SumCents totals the paired items in minor units.
func SumCents(items []PairedItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalCents
	}
	return total
}

// confirmedFromStripe reads the charged price and product ref of each line item.
// Products must be expanded for refs, names and images to be present.
func confirmedFromStripe(items []*stripe.LineItem) []ConfirmedItem {
	out := make([]ConfirmedItem, 0, len(items))
	for _, li := range items {
		if li == nil {
			continue
		}
		item := ConfirmedItem{
			Quantity:       int(li.Quantity),
			UnitPriceCents: -1,
		}
		if li.Price != nil {
			item.UnitPriceCents = li.Price.UnitAmount
			if product := li.Price.Product; product != nil {
				item.ProductRef = product.Metadata[stripeclient.ProductRefMetadataKey]
				item.Name = product.Name
				if len(product.Images) > 0 {
					item.ImageURL = product.Images[0]
				}
			}
		}
		if item.UnitPriceCents < 0 && li.Quantity > 0 && li.AmountSubtotal%li.Quantity == 0 {
			item.UnitPriceCents = li.AmountSubtotal / li.Quantity
		}
		out = append(out, item)
	}
	return out
}
