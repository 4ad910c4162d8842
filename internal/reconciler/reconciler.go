// Package reconciler turns completed checkout sessions into durable orders.
// It is safe to run for the same session any number of times and from
// concurrent handlers: the unique session constraint decides the single writer.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/tracing"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	tracerComponent = "internal/reconciler"
	actorSource     = "stripe"

	resultCreated   = "created"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
	resultRetry     = "retry"

	reasonMetadata      = "metadata"
	reasonPairing       = "pairing"
	reasonTotalMismatch = "total_mismatch"
	reasonIncomplete    = "incomplete_session"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type lineItemLister interface {
	ListLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
}

// Result describes the order a session reconciled to.
type Result struct {
	Order   *models.Order
	Created bool
}

// Service materializes orders from processor-confirmed checkout sessions.
type Service interface {
	Reconcile(ctx context.Context, session *stripe.CheckoutSession) (*Result, error)
	SettleAsyncPayment(ctx context.Context, session *stripe.CheckoutSession, succeeded bool) error
}

// ServiceParams wires the reconciler.
type ServiceParams struct {
	DB       txRunner
	Orders   orders.Repository
	Sessions lineItemLister
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Metrics  *metrics.PipelineMetrics
	Now      func() time.Time
}

type service struct {
	db       txRunner
	orders   orders.Repository
	sessions lineItemLister
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.PipelineMetrics
	now      func() time.Time
}

// NewService builds the reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("line item lister required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		orders:   params.Orders,
		sessions: params.Sessions,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

func (s *service) Reconcile(ctx context.Context, session *stripe.CheckoutSession) (*Result, error) {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	ctx = s.logg.WithSessionID(ctx, session.ID)
	ctx, span := tracing.Tracer(tracerComponent).Start(ctx, "reconciler.reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.session_id", session.ID))

	existing, err := s.orders.FindBySessionID(ctx, session.ID)
	if err != nil {
		tracing.Fail(span, err)
		s.metrics.IncReconciliation(resultRetry, "lookup")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by session")
	}
	if existing != nil {
		s.metrics.IncReconciliation(resultDuplicate, "")
		s.logg.Info(ctx, "checkout session already reconciled")
		return &Result{Order: existing}, nil
	}

	if session.Status != stripe.CheckoutSessionStatusComplete {
		return nil, s.irrecoverable(ctx, reasonIncomplete, fmt.Errorf("session status %q", session.Status))
	}

	lineItems, err := s.sessions.ListLineItems(ctx, session.ID)
	if err != nil {
		tracing.Fail(span, err)
		s.metrics.IncReconciliation(resultRetry, "line_items")
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "confirmed line items unavailable")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmed line items")
	}

	meta, err := checkout.DecodeSessionMetadata(session.Metadata)
	if err != nil {
		return nil, s.irrecoverable(ctx, reasonMetadata, err)
	}
	paired, err := Pair(meta, confirmedFromStripe(lineItems))
	if err != nil {
		return nil, s.irrecoverable(ctx, reasonPairing, err)
	}
	total := SumCents(paired)
	if total != session.AmountTotal {
		return nil, s.irrecoverable(ctx, reasonTotalMismatch, fmt.Errorf("line items sum to %d but session total is %d", total, session.AmountTotal))
	}

	order := s.buildOrder(session, meta, total)
	created := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		inserted, err := repo.CreateIfAbsent(ctx, order)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		if err := repo.CreateLineItems(ctx, lineItemModels(order.ID, paired)); err != nil {
			return err
		}
		created = true
		return s.outbox.Emit(ctx, tx, orderPaidEvent(order, meta.BuyerID, paired, s.now().UTC()))
	})
	if err != nil {
		tracing.Fail(span, err)
		s.metrics.IncReconciliation(resultRetry, "persist")
		s.logg.Error(ctx, "order persist failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	if !created {
		winner, err := s.orders.FindBySessionID(ctx, session.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by session")
		}
		s.metrics.IncReconciliation(resultDuplicate, "")
		s.logg.Info(ctx, "checkout session reconciled concurrently")
		return &Result{Order: winner}, nil
	}

	s.metrics.IncReconciliation(resultCreated, "")
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":    order.ID.String(),
		"status":      order.Status,
		"total_cents": order.TotalCents,
		"line_items":  len(paired),
	})
	s.logg.Info(logCtx, "order created from checkout session")
	return &Result{Order: order, Created: true}, nil
}

// SettleAsyncPayment applies the outcome of a delayed payment method. A session
// that has no order yet is reconciled first.
func (s *service) SettleAsyncPayment(ctx context.Context, session *stripe.CheckoutSession, succeeded bool) error {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	ctx = s.logg.WithSessionID(ctx, session.ID)

	target := enums.OrderStatusFailed
	if succeeded {
		target = enums.OrderStatusPaid
	}

	result, err := s.Reconcile(ctx, session)
	if err != nil {
		return err
	}
	order := result.Order
	if order.Status == target {
		return nil
	}
	if !order.Status.CanTransitionTo(target) {
		logCtx := s.logg.WithFields(ctx, map[string]any{"from": order.Status, "to": target})
		s.logg.Warn(logCtx, "ignoring async payment outcome for settled order")
		return nil
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.orders.WithTx(tx).TransitionStatus(ctx, session.ID, order.Status, target)
		if err != nil || !moved {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Source: actorSource},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:         order.ID,
				StripeSessionID: session.ID,
				From:            order.Status,
				To:              target,
				ChangedAt:       s.now().UTC(),
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "from": order.Status, "to": target})
	s.logg.Info(logCtx, "order payment settled")
	return nil
}

func (s *service) irrecoverable(ctx context.Context, reason string, cause error) error {
	s.metrics.IncReconciliation(resultFailed, reason)
	s.logg.Error(s.logg.WithField(ctx, "reason", reason), "checkout session cannot be reconciled", cause)
	return pkgerrors.Wrap(pkgerrors.CodeReconciliation, cause, "checkout session cannot be reconciled")
}

func (s *service) buildOrder(session *stripe.CheckoutSession, meta checkout.SessionMetadata, total int64) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     orders.NewOrderNumber(),
		StripeSessionID: session.ID,
		Status:          statusFor(session.PaymentStatus),
		Currency:        strings.ToLower(string(session.Currency)),
		TotalCents:      total,
		CreatedAt:       s.now().UTC(),
	}
	if meta.BuyerID != "" {
		buyerID := meta.BuyerID
		order.BuyerID = &buyerID
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		intentID := session.PaymentIntent.ID
		order.StripePaymentIntentID = &intentID
	}
	if details := session.CustomerDetails; details != nil {
		if details.Email != "" {
			email := details.Email
			order.Email = &email
		}
		order.Shipping = shippingFrom(details)
	}
	return order
}

func shippingFrom(details *stripe.CheckoutSessionCustomerDetails) types.Address {
	address := types.Address{Name: details.Name}
	if details.Address == nil {
		return address
	}
	address.Line1 = details.Address.Line1
	address.City = details.Address.City
	address.State = details.Address.State
	address.PostalCode = details.Address.PostalCode
	address.Country = details.Address.Country
	if details.Address.Line2 != "" {
		line2 := details.Address.Line2
		address.Line2 = &line2
	}
	return address
}

// statusFor maps the session payment status; delayed methods settle later.
func statusFor(status stripe.CheckoutSessionPaymentStatus) enums.OrderStatus {
	switch status {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return enums.OrderStatusPaid
	default:
		return enums.OrderStatusPending
	}
}

func lineItemModels(orderID uuid.UUID, paired []PairedItem) []models.OrderLineItem {
	items := make([]models.OrderLineItem, 0, len(paired))
	for _, item := range paired {
		row := models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			Position:       item.Position,
			ProductRef:     item.ProductRef,
			Name:           item.Name,
			Qty:            item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		}
		if item.ImageURL != "" {
			image := item.ImageURL
			row.ImageURL = &image
		}
		items = append(items, row)
	}
	return items
}

func orderPaidEvent(order *models.Order, buyerID string, paired []PairedItem, at time.Time) outbox.DomainEvent {
	lines := make([]payloads.OrderPaidLineItem, 0, len(paired))
	for _, item := range paired {
		lines = append(lines, payloads.OrderPaidLineItem{
			ProductRef:     item.ProductRef,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{BuyerID: buyerID, Source: actorSource},
		Data: payloads.OrderPaidEvent{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			StripeSessionID: order.StripeSessionID,
			BuyerID:         buyerID,
			Status:          order.Status,
			Currency:        order.Currency,
			TotalCents:      order.TotalCents,
			LineItems:       lines,
			PaidAt:          at,
		},
		OccurredAt: at,
	}
}

// IsIrrecoverable reports whether err requires operator intervention rather than a retry.
func IsIrrecoverable(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeReconciliation) || errors.Is(err, ErrPairing)
}
