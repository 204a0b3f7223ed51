package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kantin/internal/models"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// GetCart returns a user's cart lines in the order they were added.
func (r *GORMCartRepository) GetCart(ctx context.Context, userID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&lines).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("get cart of user %s", userID))
	}
	return lines, nil
}

// UpsertLine adds an item to the cart or replaces the line already holding it.
func (r *GORMCartRepository) UpsertLine(ctx context.Context, line *models.CartLine) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "special_request", "unit_price_snapshot", "updated_at"}),
	}).Create(line).Error
	if err != nil {
		return translate(err, fmt.Sprintf("upsert cart line %s", line.ItemID))
	}
	return nil
}

// RemoveLine deletes one item from the cart.
func (r *GORMCartRepository) RemoveLine(ctx context.Context, userID, itemID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.CartLine{})
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("remove cart line %s", itemID))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart line %s: %w", itemID, ErrNotFound)
	}
	return nil
}

// ClearCart deletes every line of a user's cart.
func (r *GORMCartRepository) ClearCart(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartLine{}).Error; err != nil {
		return translate(err, fmt.Sprintf("clear cart of user %s", userID))
	}
	return nil
}
