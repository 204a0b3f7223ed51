package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kantin/internal/models"
)

// GORMCatalogRepository is a GORM implementation of CatalogRepository.
type GORMCatalogRepository struct {
	db *gorm.DB
}

// NewGORMCatalogRepository creates a new instance of GORMCatalogRepository.
func NewGORMCatalogRepository(db *gorm.DB) *GORMCatalogRepository {
	return &GORMCatalogRepository{db: db}
}

// GetAvailableItem returns the menu item with its live price and availability.
func (r *GORMCatalogRepository) GetAvailableItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("get menu item %s", id))
	}
	return &item, nil
}

// DecrementStock takes qty units off a tracked item. Untracked items are left
// alone.
func (r *GORMCatalogRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("decrement stock of %s", id))
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var item models.MenuItem
	if err := r.db.WithContext(ctx).Select("stock").First(&item, "id = ?", id).Error; err != nil {
		return translate(err, fmt.Sprintf("get menu item %s", id))
	}
	if item.Stock == nil {
		return nil
	}
	return fmt.Errorf("item %s has %d left, %d requested: %w", id, *item.Stock, qty, ErrInsufficientStock)
}

// Create creates a new menu item in the database.
func (r *GORMCatalogRepository) Create(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return translate(err, "create menu item")
	}
	return nil
}
