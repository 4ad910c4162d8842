package cart

// Item is one intended purchase, keyed by ProductRef. Prices are minor units.
type Item struct {
	ProductRef     string `json:"product_ref"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int    `json:"quantity"`
}

// Store is a buyer's cart ledger. It performs no I/O and is owned by a single
// writer; callers load it, mutate it and persist Items().
type Store struct {
	items []Item
}

// NewStore seeds a store from previously persisted items. Entries with a
// non-positive quantity or a duplicate ref are dropped.
func NewStore(items []Item) *Store {
	s := &Store{items: make([]Item, 0, len(items))}
	for _, item := range items {
		if item.ProductRef == "" || item.Quantity <= 0 || s.index(item.ProductRef) >= 0 {
			continue
		}
		s.items = append(s.items, item)
	}
	return s
}

// AddItem bumps the quantity of an existing ref by one or appends the item with quantity 1.
func (s *Store) AddItem(item Item) {
	if i := s.index(item.ProductRef); i >= 0 {
		s.items[i].Quantity++
		return
	}
	item.Quantity = 1
	s.items = append(s.items, item)
}

// RemoveItem deletes the entry; absent refs are a no-op.
func (s *Store) RemoveItem(productRef string) {
	i := s.index(productRef)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
}

// SetQuantity sets the exact quantity; n <= 0 removes the entry.
func (s *Store) SetQuantity(productRef string, n int) {
	if n <= 0 {
		s.RemoveItem(productRef)
		return
	}
	if i := s.index(productRef); i >= 0 {
		s.items[i].Quantity = n
	}
}

func (s *Store) Clear() {
	s.items = s.items[:0]
}

// Items returns a copy in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) TotalItems() int {
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

func (s *Store) TotalPriceCents() int64 {
	var total int64
	for _, item := range s.items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

func (s *Store) index(productRef string) int {
	for i := range s.items {
		if s.items[i].ProductRef == productRef {
			return i
		}
	}
	return -1
}
