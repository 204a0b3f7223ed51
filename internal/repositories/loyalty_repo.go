package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kantin/internal/models"
)

// LoyaltyRepository defines the interface for loyalty balance data access.
type LoyaltyRepository interface {
	AddPoints(ctx context.Context, userID string, points int64) error
	Get(ctx context.Context, userID string) (*models.LoyaltyBalance, error)
}

// GORMLoyaltyRepository is a GORM implementation of LoyaltyRepository.
type GORMLoyaltyRepository struct {
	db *gorm.DB
}

// NewGORMLoyaltyRepository creates a new instance of GORMLoyaltyRepository.
func NewGORMLoyaltyRepository(db *gorm.DB) *GORMLoyaltyRepository {
	return &GORMLoyaltyRepository{db: db}
}

// AddPoints credits points, creating the balance on first use.
func (r *GORMLoyaltyRepository) AddPoints(ctx context.Context, userID string, points int64) error {
	balance := models.LoyaltyBalance{UserID: userID, Points: points}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points":     gorm.Expr("loyalty_balances.points + ?", points),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&balance).Error
	if err != nil {
		return translate(err, fmt.Sprintf("add loyalty points for user %s", userID))
	}
	return nil
}

func (r *GORMLoyaltyRepository) Get(ctx context.Context, userID string) (*models.LoyaltyBalance, error) {
	var balance models.LoyaltyBalance
	if err := r.db.WithContext(ctx).First(&balance, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("get loyalty balance of user %s", userID))
	}
	return &balance, nil
}
