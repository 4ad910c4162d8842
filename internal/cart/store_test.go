package cart

import (
	"math/rand"
	"testing"
)

func TestStoreAddItemIncrementsExistingRef(t *testing.T) {
	store := NewStore(nil)
	store.AddItem(Item{ProductRef: "p1", Name: "Mug", UnitPriceCents: 2500, Quantity: 7})
	store.AddItem(Item{ProductRef: "p1", Name: "Mug", UnitPriceCents: 2500})
	store.AddItem(Item{ProductRef: "p2", Name: "Tee", UnitPriceCents: 1000})

	items := store.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(items))
	}
	if items[0].ProductRef != "p1" || items[0].Quantity != 2 {
		t.Fatalf("expected p1 x2 first, got %+v", items[0])
	}
	if store.TotalItems() != 3 {
		t.Fatalf("expected 3 total items, got %d", store.TotalItems())
	}
	if store.TotalPriceCents() != 6000 {
		t.Fatalf("expected 6000 cents, got %d", store.TotalPriceCents())
	}
}

func TestStoreSetQuantityZeroRemovesEntry(t *testing.T) {
	store := NewStore([]Item{{ProductRef: "p1", UnitPriceCents: 500, Quantity: 1}})

	store.SetQuantity("p1", 0)
	if store.Len() != 0 {
		t.Fatalf("expected entry removed, got %+v", store.Items())
	}

	store.SetQuantity("missing", 3)
	if store.Len() != 0 {
		t.Fatalf("setting quantity on an absent ref must not insert it")
	}
}

func TestStoreRemoveItemAbsentIsNoop(t *testing.T) {
	store := NewStore([]Item{{ProductRef: "p1", UnitPriceCents: 500, Quantity: 2}})
	store.RemoveItem("nope")
	if store.Len() != 1 || store.TotalItems() != 2 {
		t.Fatalf("unexpected state after no-op remove: %+v", store.Items())
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore([]Item{{ProductRef: "p1", Quantity: 1}, {ProductRef: "p2", Quantity: 4}})
	store.Clear()
	if store.Len() != 0 || store.TotalItems() != 0 || store.TotalPriceCents() != 0 {
		t.Fatalf("expected empty store, got %+v", store.Items())
	}
}

func TestNewStoreDropsInvalidEntries(t *testing.T) {
	store := NewStore([]Item{
		{ProductRef: "p1", Quantity: 1},
		{ProductRef: "p1", Quantity: 5},
		{ProductRef: "", Quantity: 1},
		{ProductRef: "p2", Quantity: 0},
	})
	items := store.Items()
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("unexpected seeded items %+v", items)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	store := NewStore([]Item{{ProductRef: "p1", Quantity: 1}})
	items := store.Items()
	items[0].Quantity = 99
	if store.TotalItems() != 1 {
		t.Fatalf("mutating the returned slice must not change the store")
	}
}

func TestStoreArithmeticHoldsAfterEveryOperation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	refs := []string{"a", "b", "c", "d"}
	prices := map[string]int64{"a": 1999, "b": 500, "c": 12000, "d": 1}
	store := NewStore(nil)

	for step := 0; step < 2000; step++ {
		ref := refs[rng.Intn(len(refs))]
		switch rng.Intn(3) {
		case 0:
			store.AddItem(Item{ProductRef: ref, UnitPriceCents: prices[ref]})
		case 1:
			store.RemoveItem(ref)
		case 2:
			store.SetQuantity(ref, rng.Intn(6)-1)
		}

		var wantItems int
		var wantPrice int64
		for _, item := range store.Items() {
			if item.Quantity < 1 {
				t.Fatalf("step %d: entry with quantity %d left in store", step, item.Quantity)
			}
			wantItems += item.Quantity
			wantPrice += prices[item.ProductRef] * int64(item.Quantity)
		}
		if got := store.TotalItems(); got != wantItems {
			t.Fatalf("step %d: total items %d want %d", step, got, wantItems)
		}
		if got := store.TotalPriceCents(); got != wantPrice {
			t.Fatalf("step %d: total price %d want %d", step, got, wantPrice)
		}
	}
}
