package middleware

import "context"

type contextKey string

const (
	ctxBuyerID    contextKey = "buyer_id"
	ctxBuyerEmail contextKey = "buyer_email"
)

// BuyerIDFromContext returns the authenticated buyer, or "" for guests.
func BuyerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxBuyerID).(string); ok {
		return v
	}
	return ""
}

func BuyerEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxBuyerEmail).(string); ok {
		return v
	}
	return ""
}

// WithBuyer injects the buyer identity into the context.
func WithBuyer(ctx context.Context, buyerID, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxBuyerID, buyerID)
	return context.WithValue(ctx, ctxBuyerEmail, email)
}
