package repositories

import (
	"context"

	"kantin/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) ([]models.CartLine, error)
	UpsertLine(ctx context.Context, line *models.CartLine) error
	RemoveLine(ctx context.Context, userID, itemID string) error
	ClearCart(ctx context.Context, userID string) error
}
