package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultSweepLookback = 72 * time.Hour
	defaultSweepGrace    = 10 * time.Minute
)

type completedSessionLister interface {
	ListCompleted(ctx context.Context, since time.Time) ([]*stripe.CheckoutSession, error)
}

type sessionOrderLookup interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
}

type sessionReconciler interface {
	Reconcile(ctx context.Context, session *stripe.CheckoutSession) (*reconciler.Result, error)
}

type MissedSessionJobParams struct {
	Logger     *logger.Logger
	Sessions   completedSessionLister
	Orders     sessionOrderLookup
	Reconciler sessionReconciler
	Lookback   time.Duration
	Grace      time.Duration
}

// NewMissedSessionJob reconciles completed checkout sessions whose webhook never produced an order.
func NewMissedSessionJob(params MissedSessionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session lister required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order lookup required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultSweepLookback
	}
	grace := params.Grace
	if grace < 0 {
		grace = defaultSweepGrace
	}
	return &missedSessionJob{
		logg:       params.Logger,
		sessions:   params.Sessions,
		orders:     params.Orders,
		reconciler: params.Reconciler,
		lookback:   lookback,
		grace:      grace,
		now:        time.Now,
	}, nil
}

type missedSessionJob struct {
	logg       *logger.Logger
	sessions   completedSessionLister
	orders     sessionOrderLookup
	reconciler sessionReconciler
	lookback   time.Duration
	grace      time.Duration
	now        func() time.Time
}

func (j *missedSessionJob) Name() string { return "missed-session-sweep" }

func (j *missedSessionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	since := now.Add(-j.lookback)
	settleBefore := now.Add(-j.grace)

	sessions, err := j.sessions.ListCompleted(ctx, since)
	if err != nil {
		return fmt.Errorf("list completed sessions: %w", err)
	}

	var (
		errs                                      error
		recovered, existing, skipped, unrecovered int
	)
	for _, session := range sessions {
		if session == nil || session.ID == "" {
			continue
		}
		if time.Unix(session.Created, 0).After(settleBefore) {
			skipped++
			continue
		}
		order, err := j.orders.FindBySessionID(ctx, session.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("lookup %s: %w", session.ID, err))
			continue
		}
		if order != nil {
			existing++
			continue
		}

		sessionCtx := j.logg.WithSessionID(ctx, session.ID)
		if _, err := j.reconciler.Reconcile(sessionCtx, session); err != nil {
			if reconciler.IsIrrecoverable(err) {
				unrecovered++
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", session.ID, err))
			continue
		}
		recovered++
		j.logg.Warn(sessionCtx, "recovered order for checkout session missed by webhook")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"since":          since,
		"sessions":       len(sessions),
		"recovered":      recovered,
		"already_exists": existing,
		"within_grace":   skipped,
		"irrecoverable":  unrecovered,
		"errors":         len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "missed session sweep complete")
	return errs
}
