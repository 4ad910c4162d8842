package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const orderNumberPrefix = "SF-"

// Service exposes the buyer-facing order read path.
type Service interface {
	List(ctx context.Context, buyerID string, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, buyerID string, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo Repository
}

// NewService builds the order read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, buyerID string, params pagination.Params) (*OrderList, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for _, row := range rows {
		list.Orders = append(list.Orders, toSummary(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, buyerID string, orderID uuid.UUID) (*OrderDetail, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID == nil || *order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}

	detail := toDetail(*order)
	return &detail, nil
}

// NewOrderNumber returns a short human-facing order reference.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderNumberPrefix + strings.ToUpper(raw[:12])
}
