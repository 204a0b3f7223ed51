package repositories

import (
	"context"
	"time"

	"kantin/internal/models"
)

// PromotionRepository defines the interface for redeemed promotion data access.
type PromotionRepository interface {
	FindByUserAndCode(ctx context.Context, userID, code string) (*models.Promotion, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	Create(ctx context.Context, promo *models.Promotion) error
}
