package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	CreateIfAbsent(ctx context.Context, order *models.Order) (bool, error)
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error)
	TransitionStatus(ctx context.Context, sessionID string, from, to enums.OrderStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindBySessionID returns nil without error when no order exists for the session.
func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// CreateIfAbsent inserts the order row unless one already exists for its session.
// It reports false when a concurrent writer won the insert.
func (r *repository) CreateIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_session_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(order)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderedLineItems).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID string, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	pageSize := pagination.NormalizeLimit(limit)
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("LineItems", orderedLineItems).
		Where("buyer_id = ?", buyerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > pageSize {
		last := rows[pageSize-1]
		return rows[:pageSize], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// TransitionStatus moves an order between statuses only when it is still in from.
func (r *repository) TransitionStatus(ctx context.Context, sessionID string, from, to enums.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("stripe_session_id = ? AND status = ?", sessionID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func orderedLineItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
