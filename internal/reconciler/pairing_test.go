package reconciler

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

func TestPairPositionalMatchesMetadataOrder(t *testing.T) {
	meta := checkout.SessionMetadata{ProductRefs: []string{"A", "B", "C"}, Quantities: []int{1, 2, 1}}
	confirmed := []ConfirmedItem{
		{Quantity: 1, UnitPriceCents: 1000},
		{Quantity: 2, UnitPriceCents: 500},
		{Quantity: 1, UnitPriceCents: 2000},
	}

	paired, err := Pair(meta, confirmed)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	want := []struct {
		ref   string
		qty   int
		unit  int64
		total int64
	}{
		{"A", 1, 1000, 1000},
		{"B", 2, 500, 1000},
		{"C", 1, 2000, 2000},
	}
	for i, w := range want {
		got := paired[i]
		if got.ProductRef != w.ref || got.Quantity != w.qty || got.UnitPriceCents != w.unit || got.TotalCents != w.total || got.Position != i {
			t.Fatalf("item %d: got %+v want %+v", i, got, w)
		}
	}
	if total := SumCents(paired); total != 4000 {
		t.Fatalf("expected total 4000, got %d", total)
	}
}

func TestPairByRefToleratesReordering(t *testing.T) {
	meta := checkout.SessionMetadata{ProductRefs: []string{"A", "B"}, Quantities: []int{1, 3}}
	confirmed := []ConfirmedItem{
		{ProductRef: "B", Quantity: 3, UnitPriceCents: 250, Name: "Bee"},
		{ProductRef: "A", Quantity: 1, UnitPriceCents: 900, Name: "Ay"},
	}

	paired, err := Pair(meta, confirmed)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if paired[0].ProductRef != "A" || paired[0].UnitPriceCents != 900 || paired[0].Name != "Ay" {
		t.Fatalf("unexpected first item %+v", paired[0])
	}
	if paired[1].ProductRef != "B" || paired[1].TotalCents != 750 {
		t.Fatalf("unexpected second item %+v", paired[1])
	}
}

func TestPairRejectsMismatches(t *testing.T) {
	meta := checkout.SessionMetadata{ProductRefs: []string{"A", "B"}, Quantities: []int{1, 2}}

	cases := map[string][]ConfirmedItem{
		"no items":          nil,
		"length mismatch":   {{Quantity: 1, UnitPriceCents: 100}},
		"quantity mismatch": {{Quantity: 1, UnitPriceCents: 100}, {Quantity: 3, UnitPriceCents: 100}},
		"unknown ref":       {{ProductRef: "A", Quantity: 1, UnitPriceCents: 100}, {ProductRef: "Z", Quantity: 2, UnitPriceCents: 100}},
		"duplicate ref":     {{ProductRef: "A", Quantity: 1, UnitPriceCents: 100}, {ProductRef: "A", Quantity: 1, UnitPriceCents: 100}},
		"positional ref":    {{ProductRef: "B", Quantity: 1, UnitPriceCents: 100}, {Quantity: 2, UnitPriceCents: 100}},
		"missing price":     {{Quantity: 1, UnitPriceCents: -1}, {Quantity: 2, UnitPriceCents: 100}},
	}

	for name, confirmed := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Pair(meta, confirmed); !errors.Is(err, ErrPairing) {
				t.Fatalf("expected pairing error, got %v", err)
			}
		})
	}
}

func TestConfirmedFromStripeReadsExpandedProduct(t *testing.T) {
	items := confirmedFromStripe([]*stripe.LineItem{
		{
			Quantity: 2,
			Price: &stripe.Price{
				UnitAmount: 2500,
				Product: &stripe.Product{
					Name:     "Lamp",
					Images:   []string{"https://cdn.example.com/lamp.png"},
					Metadata: map[string]string{stripeclient.ProductRefMetadataKey: "p1"},
				},
			},
		},
		{Quantity: 3, AmountSubtotal: 900},
		nil,
	})

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ProductRef != "p1" || items[0].UnitPriceCents != 2500 || items[0].ImageURL == "" || items[0].Name != "Lamp" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].UnitPriceCents != 300 || items[1].ProductRef != "" {
		t.Fatalf("unexpected fallback item %+v", items[1])
	}
}
