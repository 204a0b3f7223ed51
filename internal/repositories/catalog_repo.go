package repositories

import (
	"context"

	"kantin/internal/models"
)

// CatalogRepository is the read side of the menu consumed by checkout.
type CatalogRepository interface {
	GetAvailableItem(ctx context.Context, id string) (*models.MenuItem, error)
	DecrementStock(ctx context.Context, id string, qty int) error
	Create(ctx context.Context, item *models.MenuItem) error
}
