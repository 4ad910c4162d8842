package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"go.opentelemetry.io/otel/attribute"

	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/tracing"
)

const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"

	tracerComponent = "internal/webhooks/stripe"
)

// Service applies verified Stripe events to the order pipeline.
type Service interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// ServiceParams wires the webhook receiver.
type ServiceParams struct {
	Reconciler reconciler.Service
	Logger     *logger.Logger
	Metrics    *metrics.PipelineMetrics
}

type service struct {
	reconciler reconciler.Service
	logg       *logger.Logger
	metrics    *metrics.PipelineMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &service{
		reconciler: params.Reconciler,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event payload missing")
	}
	eventType := string(event.Type)
	if s.logg != nil {
		ctx = s.logg.WithEventID(ctx, event.ID)
	}

	ctx, span := tracing.Tracer(tracerComponent).Start(ctx, "stripe.webhook.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", eventType),
	)

	var err error
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = s.handleCompleted(ctx, event)
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		err = s.handleAsyncPayment(ctx, event, true)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		err = s.handleAsyncPayment(ctx, event, false)
	default:
		s.metrics.IncWebhookEvent(eventType, outcomeIgnored)
		if s.logg != nil {
			s.logg.Debug(ctx, "ignoring stripe event type "+eventType)
		}
		return nil
	}

	if err != nil {
		tracing.Fail(span, err)
		outcome := outcomeFailed
		if !pkgerrors.IsRetryable(err) {
			outcome = outcomeRejected
		}
		s.metrics.IncWebhookEvent(eventType, outcome)
		return err
	}
	s.metrics.IncWebhookEvent(eventType, outcomeProcessed)
	return nil
}

func (s *service) handleCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := decodeSession(event)
	if err != nil {
		return err
	}
	if s.logg != nil {
		ctx = s.logg.WithSessionID(ctx, session.ID)
	}
	result, err := s.reconciler.Reconcile(ctx, session)
	if err != nil {
		return err
	}
	if s.logg != nil && result != nil && result.Order != nil {
		ctx = s.logg.WithField(ctx, "order_id", result.Order.ID.String())
		if result.Created {
			s.logg.Info(ctx, "order created from checkout session")
		} else {
			s.logg.Info(ctx, "checkout session already reconciled")
		}
	}
	return nil
}

func (s *service) handleAsyncPayment(ctx context.Context, event *stripe.Event, succeeded bool) error {
	session, err := decodeSession(event)
	if err != nil {
		return err
	}
	if s.logg != nil {
		ctx = s.logg.WithSessionID(ctx, session.ID)
	}
	return s.reconciler.SettleAsyncPayment(ctx, session, succeeded)
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	if len(event.Data.Raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event payload missing")
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return &session, nil
}
