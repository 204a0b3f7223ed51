package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kantin/internal/models"
)

// QueueRepository hands out per-vendor, per-day queue numbers.
type QueueRepository interface {
	Next(ctx context.Context, vendorID, day string, base int) (int, error)
}

// GORMQueueRepository keeps one counter row per vendor and day. The row is
// seeded at base-1 and bumped with a single UPDATE, so the row lock taken by
// that statement is what orders concurrent checkouts.
type GORMQueueRepository struct {
	db *gorm.DB
}

// NewGORMQueueRepository creates a new instance of GORMQueueRepository.
func NewGORMQueueRepository(db *gorm.DB) *GORMQueueRepository {
	return &GORMQueueRepository{db: db}
}

// Next returns the next free queue number. It must run inside the transaction
// that also stores the pickup carrying the number.
func (r *GORMQueueRepository) Next(ctx context.Context, vendorID, day string, base int) (int, error) {
	db := r.db.WithContext(ctx)
	seed := models.QueueCounter{VendorID: vendorID, Day: day, LastNumber: base - 1}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, translate(err, fmt.Sprintf("seed queue counter %s/%s", vendorID, day))
	}

	res := db.Model(&models.QueueCounter{}).
		Where("vendor_id = ? AND day = ?", vendorID, day).
		UpdateColumn("last_number", gorm.Expr("last_number + 1"))
	if res.Error != nil {
		return 0, translate(res.Error, fmt.Sprintf("bump queue counter %s/%s", vendorID, day))
	}
	if res.RowsAffected != 1 {
		return 0, fmt.Errorf("queue counter %s/%s: %w", vendorID, day, ErrConflict)
	}

	var counter models.QueueCounter
	if err := db.First(&counter, "vendor_id = ? AND day = ?", vendorID, day).Error; err != nil {
		return 0, translate(err, fmt.Sprintf("read queue counter %s/%s", vendorID, day))
	}
	return counter.LastNumber, nil
}
