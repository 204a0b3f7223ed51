package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"kantin/internal/models"
)

// GORMPromotionRepository is a GORM implementation of PromotionRepository.
type GORMPromotionRepository struct {
	db *gorm.DB
}

// NewGORMPromotionRepository creates a new instance of GORMPromotionRepository.
func NewGORMPromotionRepository(db *gorm.DB) *GORMPromotionRepository {
	return &GORMPromotionRepository{db: db}
}

// FindByUserAndCode returns the promotion a user redeemed under code.
func (r *GORMPromotionRepository) FindByUserAndCode(ctx context.Context, userID, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).First(&promo, "user_id = ? AND code = ?", userID, code).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find promotion %q", code))
	}
	return &promo, nil
}

// MarkUsed flips used from false to true. If another checkout got there first
// no row matches and ErrConflict is returned.
func (r *GORMPromotionRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{"used": true, "used_at": at})
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("mark promotion %s used", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("promotion %s already used: %w", id, ErrConflict)
	}
	return nil
}

// Create stores a redeemed promotion.
func (r *GORMPromotionRepository) Create(ctx context.Context, promo *models.Promotion) error {
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return translate(err, "create promotion")
	}
	return nil
}
