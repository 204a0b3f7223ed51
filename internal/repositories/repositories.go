package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kantin/internal/models"
)

// Repositories groups every repository bound to the same connection or
// transaction.
type Repositories struct {
	Carts         CartRepository
	Catalog       CatalogRepository
	Orders        OrderRepository
	Promotions    PromotionRepository
	Loyalty       LoyaltyRepository
	Queue         QueueRepository
	Notifications NotificationRepository
	VendorStats   VendorStatsRepository
}

// UnitOfWork runs a function against repositories that share one transaction.
type UnitOfWork interface {
	Repositories() Repositories
	Do(ctx context.Context, fn func(r Repositories) error) error
}

// GORMUnitOfWork is the GORM implementation of UnitOfWork.
type GORMUnitOfWork struct {
	db *gorm.DB
}

// NewGORMUnitOfWork creates a new instance of GORMUnitOfWork.
func NewGORMUnitOfWork(db *gorm.DB) *GORMUnitOfWork {
	return &GORMUnitOfWork{db: db}
}

// Repositories returns repositories that run each call on its own.
func (u *GORMUnitOfWork) Repositories() Repositories {
	return NewGORMRepositories(u.db)
}

// Do commits when fn returns nil and rolls back on an error or panic. A
// commit the database aborted as a deadlock or serialization victim is
// reported as ErrConflict.
func (u *GORMUnitOfWork) Do(ctx context.Context, fn func(r Repositories) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMRepositories(tx))
	})
	if err != nil && !errors.Is(err, ErrConflict) && isTransactionAborted(err) {
		return fmt.Errorf("commit: %w: %v", ErrConflict, err)
	}
	return err
}

// NewGORMRepositories binds every GORM repository to db.
func NewGORMRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Carts:         NewGORMCartRepository(db),
		Catalog:       NewGORMCatalogRepository(db),
		Orders:        NewGORMOrderRepository(db),
		Promotions:    NewGORMPromotionRepository(db),
		Loyalty:       NewGORMLoyaltyRepository(db),
		Queue:         NewGORMQueueRepository(db),
		Notifications: NewGORMNotificationRepository(db),
		VendorStats:   NewGORMVendorStatsRepository(db),
	}
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.MenuItem{},
		&models.CartLine{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Pickup{},
		&models.QueueCounter{},
		&models.LoyaltyBalance{},
		&models.Notification{},
		&models.VendorDailyStats{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
