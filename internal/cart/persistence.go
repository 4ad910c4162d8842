package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Persister stores the item collection for a buyer. UI state is never persisted.
type Persister interface {
	Load(ctx context.Context, buyerID string) ([]Item, error)
	Save(ctx context.Context, buyerID string, items []Item) error
	Delete(ctx context.Context, buyerID string) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(buyerID string) string
}

// RedisPersister keeps each buyer's items as a JSON document with a sliding TTL.
type RedisPersister struct {
	store redisStore
	ttl   time.Duration
}

// NewRedisPersister builds a persister backed by the shared redis client.
func NewRedisPersister(store redisStore, ttl time.Duration) (*RedisPersister, error) {
	if store == nil {
		return nil, errors.New("redis store required")
	}
	return &RedisPersister{store: store, ttl: ttl}, nil
}

func (p *RedisPersister) Load(ctx context.Context, buyerID string) ([]Item, error) {
	raw, err := p.store.Get(ctx, p.store.CartKey(buyerID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (p *RedisPersister) Save(ctx context.Context, buyerID string, items []Item) error {
	if len(items) == 0 {
		return p.Delete(ctx, buyerID)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := p.store.Set(ctx, p.store.CartKey(buyerID), string(payload), p.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, buyerID string) error {
	if err := p.store.Del(ctx, p.store.CartKey(buyerID)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
