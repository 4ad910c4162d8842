package customers

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository resolves buyer identities to their Stripe customers.
type Repository interface {
	FindByBuyerID(ctx context.Context, buyerID string) (*models.Customer, error)
	Upsert(ctx context.Context, customer *models.Customer) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a customers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// FindByBuyerID returns nil without error when the buyer has no Stripe customer yet.
func (r *repository) FindByBuyerID(ctx context.Context, buyerID string) (*models.Customer, error) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return nil, nil
	}

	var customer models.Customer
	if err := r.DB(ctx).Where("buyer_id = ?", buyerID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Upsert stores or refreshes the buyer's Stripe customer link.
func (r *repository) Upsert(ctx context.Context, customer *models.Customer) error {
	if customer == nil || strings.TrimSpace(customer.BuyerID) == "" {
		return errors.New("customer buyer id required")
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "buyer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "stripe_customer_id", "updated_at"}),
	}).Create(customer).Error
}
