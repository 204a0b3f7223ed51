package repositories

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kantin/internal/models"
)

// NotificationRepository stores customer notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
}

// VendorStatsRepository stores the daily dashboard counters of vendors.
type VendorStatsRepository interface {
	Increment(ctx context.Context, vendorID, day string, kind models.EventKind, revenue decimal.Decimal) error
	Get(ctx context.Context, vendorID, day string) (*models.VendorDailyStats, error)
}

// GORMNotificationRepository is a GORM implementation of NotificationRepository.
type GORMNotificationRepository struct {
	db *gorm.DB
}

// NewGORMNotificationRepository creates a new instance of GORMNotificationRepository.
func NewGORMNotificationRepository(db *gorm.DB) *GORMNotificationRepository {
	return &GORMNotificationRepository{db: db}
}

func (r *GORMNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return translate(err, fmt.Sprintf("create notification for order %s", n.OrderID))
	}
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *GORMNotificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&list).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("list notifications of user %s", userID))
	}
	return list, nil
}

// GORMVendorStatsRepository is a GORM implementation of VendorStatsRepository.
type GORMVendorStatsRepository struct {
	db *gorm.DB
}

// NewGORMVendorStatsRepository creates a new instance of GORMVendorStatsRepository.
func NewGORMVendorStatsRepository(db *gorm.DB) *GORMVendorStatsRepository {
	return &GORMVendorStatsRepository{db: db}
}

var statColumns = map[models.EventKind]string{
	models.EventCreated:   "created",
	models.EventAccepted:  "accepted",
	models.EventPreparing: "preparing",
	models.EventReady:     "ready",
	models.EventCollected: "collected",
	models.EventCancelled: "cancelled",
}

// Increment bumps the counter for kind and adds revenue to the day's total.
func (r *GORMVendorStatsRepository) Increment(ctx context.Context, vendorID, day string, kind models.EventKind, revenue decimal.Decimal) error {
	col, ok := statColumns[kind]
	if !ok {
		return fmt.Errorf("unknown event kind %q", kind)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.VendorDailyStats{VendorID: vendorID, Day: day, Revenue: decimal.Zero}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		return tx.Model(&models.VendorDailyStats{}).
			Where("vendor_id = ? AND day = ?", vendorID, day).
			Updates(map[string]interface{}{
				col:       gorm.Expr(col+" + 1"),
				"revenue": gorm.Expr("revenue + ?", revenue),
			}).Error
	})
	if err != nil {
		return translate(err, fmt.Sprintf("increment %s for vendor %s", col, vendorID))
	}
	return nil
}

// Get returns the counters of one vendor and day. A day without events reads
// as all zeros.
func (r *GORMVendorStatsRepository) Get(ctx context.Context, vendorID, day string) (*models.VendorDailyStats, error) {
	var stats models.VendorDailyStats
	err := r.db.WithContext(ctx).Where("vendor_id = ? AND day = ?", vendorID, day).Limit(1).Find(&stats).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get stats of vendor %s", vendorID))
	}
	if stats.VendorID == "" {
		return &models.VendorDailyStats{VendorID: vendorID, Day: day, Revenue: decimal.Zero}, nil
	}
	return &stats, nil
}
