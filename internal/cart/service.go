package cart

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Snapshot is the cart as returned to callers, with sums derived on read.
type Snapshot struct {
	Items           []Item `json:"items"`
	TotalItems      int    `json:"total_items"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

// Service applies cart mutations for a buyer and persists the result.
type Service interface {
	Get(ctx context.Context, buyerID string) (*Snapshot, error)
	AddItem(ctx context.Context, buyerID string, item Item) (*Snapshot, error)
	RemoveItem(ctx context.Context, buyerID, productRef string) (*Snapshot, error)
	SetQuantity(ctx context.Context, buyerID, productRef string, quantity int) (*Snapshot, error)
	Clear(ctx context.Context, buyerID string) error
}

type service struct {
	persister Persister
}

// NewService builds a cart service backed by the provided persister.
func NewService(persister Persister) (Service, error) {
	if persister == nil {
		return nil, fmt.Errorf("cart persister required")
	}
	return &service{persister: persister}, nil
}

func (s *service) Get(ctx context.Context, buyerID string) (*Snapshot, error) {
	store, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(store), nil
}

func (s *service) AddItem(ctx context.Context, buyerID string, item Item) (*Snapshot, error) {
	item.ProductRef = normalizeRef(item.ProductRef)
	if item.ProductRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_ref is required")
	}
	if item.UnitPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	return s.mutate(ctx, buyerID, func(store *Store) { store.AddItem(item) })
}

func (s *service) RemoveItem(ctx context.Context, buyerID, productRef string) (*Snapshot, error) {
	productRef = normalizeRef(productRef)
	return s.mutate(ctx, buyerID, func(store *Store) { store.RemoveItem(productRef) })
}

func (s *service) SetQuantity(ctx context.Context, buyerID, productRef string, quantity int) (*Snapshot, error) {
	productRef = normalizeRef(productRef)
	return s.mutate(ctx, buyerID, func(store *Store) { store.SetQuantity(productRef, quantity) })
}

// Clear empties the cart. It is driven by the success redirect and says nothing
// about whether an order has been materialized.
func (s *service) Clear(ctx context.Context, buyerID string) error {
	if err := requireBuyer(buyerID); err != nil {
		return err
	}
	if err := s.persister.Delete(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) mutate(ctx context.Context, buyerID string, fn func(*Store)) (*Snapshot, error) {
	store, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	fn(store)
	if err := s.persister.Save(ctx, buyerID, store.Items()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return snapshotOf(store), nil
}

func (s *service) load(ctx context.Context, buyerID string) (*Store, error) {
	if err := requireBuyer(buyerID); err != nil {
		return nil, err
	}
	items, err := s.persister.Load(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewStore(items), nil
}

func requireBuyer(buyerID string) error {
	if strings.TrimSpace(buyerID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	return nil
}

func snapshotOf(store *Store) *Snapshot {
	return &Snapshot{
		Items:           store.Items(),
		TotalItems:      store.TotalItems(),
		TotalPriceCents: store.TotalPriceCents(),
	}
}

func normalizeRef(productRef string) string {
	return strings.TrimSpace(productRef)
}
