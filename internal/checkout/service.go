package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"go.opentelemetry.io/otel/attribute"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/tracing"
)

// MaxLineItems caps a single hosted session; line items are listed back in one page.
const MaxLineItems = 100

const (
	checkoutModePayment   = "payment"
	paymentMethodTypeCard = "card"
	maxProductNameLen     = 250
	tracerComponent       = "internal/checkout"
)

type customerLookup interface {
	FindByBuyerID(ctx context.Context, buyerID string) (*models.Customer, error)
}

// Request is the cart snapshot submitted for payment. BuyerID is empty for guests.
type Request struct {
	BuyerID string
	Email   string
	Items   []cart.Item
}

// Session is the hosted payment session the buyer is redirected to.
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// Service opens hosted checkout sessions. No order is written here.
type Service interface {
	Initiate(ctx context.Context, req Request) (*Session, error)
}

// ServiceParams wires the checkout initiator.
type ServiceParams struct {
	Sessions  stripeclient.CheckoutSessions
	Customers customerLookup
	Config    config.CheckoutConfig
	SiteURL   string
	Logger    *logger.Logger
	Metrics   *metrics.PipelineMetrics
}

type service struct {
	sessions  stripeclient.CheckoutSessions
	customers customerLookup
	cfg       config.CheckoutConfig
	siteURL   string
	logg      *logger.Logger
	metrics   *metrics.PipelineMetrics
}

// NewService builds the checkout initiator.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("checkout sessions client required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer lookup required")
	}
	if strings.TrimSpace(params.SiteURL) == "" {
		return nil, fmt.Errorf("site url required")
	}
	return &service{
		sessions:  params.Sessions,
		customers: params.Customers,
		cfg:       params.Config,
		siteURL:   params.SiteURL,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

func (s *service) Initiate(ctx context.Context, req Request) (*Session, error) {
	metadata, err := validateRequest(req)
	if err != nil {
		s.metrics.IncCheckoutSession("rejected")
		return nil, err
	}
	encoded, err := metadata.Encode()
	if err != nil {
		s.metrics.IncCheckoutSession("rejected")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart cannot be checked out")
	}

	ctx, span := tracing.Tracer(tracerComponent).Start(ctx, "checkout.session.create")
	defer span.End()
	span.SetAttributes(
		attribute.Int("checkout.line_items", len(req.Items)),
		attribute.Bool("checkout.guest", metadata.BuyerID == ""),
	)

	customer, err := s.customers.FindByBuyerID(ctx, metadata.BuyerID)
	if err != nil {
		tracing.Fail(span, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to resolve customer")
	}

	params := s.sessionParams(req, metadata.BuyerID, customer)
	for key, value := range encoded {
		params.AddMetadata(key, value)
	}

	created, err := s.sessions.Create(ctx, params)
	if err != nil {
		tracing.Fail(span, err)
		s.metrics.IncCheckoutSession("provider_error")
		if s.logg != nil {
			s.logg.Error(s.logg.WithBuyerID(ctx, metadata.BuyerID), "checkout session create failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}
	if created == nil || created.URL == "" {
		err := fmt.Errorf("checkout session returned without redirect url")
		tracing.Fail(span, err)
		s.metrics.IncCheckoutSession("provider_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}
	span.SetAttributes(attribute.String("checkout.session_id", created.ID))
	s.metrics.IncCheckoutSession("created")

	if s.logg != nil {
		logCtx := s.logg.WithSessionID(s.logg.WithBuyerID(ctx, metadata.BuyerID), created.ID)
		s.logg.Info(logCtx, "checkout session created")
	}
	return &Session{ID: created.ID, URL: created.URL}, nil
}

func (s *service) sessionParams(req Request, buyerID string, customer *models.Customer) *stripe.CheckoutSessionCreateParams {
	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
			Name: stripe.String(strings.TrimSpace(item.Name)),
			Metadata: map[string]string{
				stripeclient.ProductRefMetadataKey: strings.TrimSpace(item.ProductRef),
			},
		}
		if item.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(s.cfg.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitPriceCents),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(checkoutModePayment),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodTypeCard}),
		LineItems:          lineItems,
		ShippingAddressCollection: &stripe.CheckoutSessionCreateShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.cfg.ShippingCountries),
		},
		SuccessURL: stripe.String(s.cfg.SuccessURL(s.siteURL)),
		CancelURL:  stripe.String(s.cfg.CancelURL(s.siteURL)),
	}
	if buyerID != "" {
		params.ClientReferenceID = stripe.String(buyerID)
	}
	switch {
	case customer != nil && customer.StripeCustomerID != "":
		params.Customer = stripe.String(customer.StripeCustomerID)
	case strings.TrimSpace(req.Email) != "":
		params.CustomerEmail = stripe.String(strings.TrimSpace(req.Email))
	}
	return params
}

func validateRequest(req Request) (checkout.SessionMetadata, error) {
	if len(req.Items) == 0 {
		return checkout.SessionMetadata{}, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if len(req.Items) > MaxLineItems {
		return checkout.SessionMetadata{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart exceeds %d line items", MaxLineItems))
	}

	metadata := checkout.SessionMetadata{
		BuyerID:     strings.TrimSpace(req.BuyerID),
		ProductRefs: make([]string, 0, len(req.Items)),
		Quantities:  make([]int, 0, len(req.Items)),
	}
	seen := make(map[string]struct{}, len(req.Items))
	for i, item := range req.Items {
		ref := strings.TrimSpace(item.ProductRef)
		switch {
		case ref == "":
			return checkout.SessionMetadata{}, itemError(i, "product_ref is required")
		case strings.TrimSpace(item.Name) == "":
			return checkout.SessionMetadata{}, itemError(i, "name is required")
		case len(item.Name) > maxProductNameLen:
			return checkout.SessionMetadata{}, itemError(i, "name is too long")
		case item.Quantity < 1:
			return checkout.SessionMetadata{}, itemError(i, "quantity must be at least 1")
		case item.UnitPriceCents < 0:
			return checkout.SessionMetadata{}, itemError(i, "price must not be negative")
		case item.UnitPriceCents > money.MaxUnitAmountCents:
			return checkout.SessionMetadata{}, itemError(i, "price exceeds the maximum allowed amount")
		}
		if _, dup := seen[ref]; dup {
			return checkout.SessionMetadata{}, itemError(i, "product_ref appears more than once")
		}
		seen[ref] = struct{}{}
		metadata.ProductRefs = append(metadata.ProductRefs, ref)
		metadata.Quantities = append(metadata.Quantities, item.Quantity)
	}
	return metadata, nil
}

func itemError(index int, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item").
		WithDetails(map[string]any{"index": index, "reason": reason})
}
