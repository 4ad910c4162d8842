package stripe

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v84"
)

const (
	// lineItemPageSize matches the largest checkout the storefront will create.
	lineItemPageSize = 100

	// ProductRefMetadataKey is stamped on each line item's product so the
	// storefront reference round-trips with the confirmed price.
	ProductRefMetadataKey = "product_ref"

	sessionStatusComplete = "complete"
)

// CheckoutSessions exposes the hosted checkout operations used by the storefront.
type CheckoutSessions interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	ListLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
	ListCompleted(ctx context.Context, since time.Time) ([]*stripe.CheckoutSession, error)
}

type checkoutSessions struct {
	api *stripe.Client
}

// NewCheckoutSessions wraps the configured client so callers can be tested with stubs.
func NewCheckoutSessions(client *Client) CheckoutSessions {
	if client == nil || client.api == nil {
		return nil
	}
	return checkoutSessions{api: client.api}
}

func (c checkoutSessions) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return c.api.V1CheckoutSessions.Create(ctx, params)
}

// ListLineItems returns the confirmed line items with their products expanded.
func (c checkoutSessions) ListLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Limit = stripe.Int64(lineItemPageSize)
	params.AddExpand("data.price.product")

	items := make([]*stripe.LineItem, 0)
	for item, err := range c.api.V1CheckoutSessions.ListLineItems(ctx, params) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ListCompleted pages through sessions completed since the given time.
func (c checkoutSessions) ListCompleted(ctx context.Context, since time.Time) ([]*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		Status: stripe.String(sessionStatusComplete),
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: since.Unix(),
		},
	}
	params.Limit = stripe.Int64(lineItemPageSize)

	sessions := make([]*stripe.CheckoutSession, 0)
	for s, err := range c.api.V1CheckoutSessions.List(ctx, params) {
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
